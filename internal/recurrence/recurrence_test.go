package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 是周一
func date(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, 0, Weekday(date(5, 0, 0)))  // 周一
	assert.Equal(t, 2, Weekday(date(7, 0, 0)))  // 周三
	assert.Equal(t, 5, Weekday(date(10, 0, 0))) // 周六
	assert.Equal(t, 6, Weekday(date(11, 0, 0))) // 周日
}

func TestParseLabTime(t *testing.T) {
	h, m, err := ParseLabTime("14:00")
	require.NoError(t, err)
	assert.Equal(t, 14, h)
	assert.Equal(t, 0, m)

	h, m, err = ParseLabTime("9:05")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "14", "14:60", "24:00", "-1:30", "ab:cd", "14:00:00"} {
		_, _, err := ParseLabTime(bad)
		assert.Error(t, err, "lab_time %q", bad)
	}
}

func TestNextTriggerUpcomingDay(t *testing.T) {
	// 周一 09:00，目标周三 14:00 提前 60 分钟 → 周三 13:00
	got, err := NextTrigger(date(5, 9, 0), 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(7, 13, 0), got)
}

func TestNextTriggerSameDayBeforeLab(t *testing.T) {
	// 周三 13:30，实验 14:00 还没到 → 触发时刻是今天 13:00（已经在过去）
	got, err := NextTrigger(date(7, 13, 30), 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(7, 13, 0), got)
}

func TestNextTriggerRollsAfterLabStart(t *testing.T) {
	// 实验时刻已过 → 滚动到下周三
	got, err := NextTrigger(date(7, 14, 1), 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(14, 13, 0), got)
}

func TestNextTriggerRollsAtExactLabInstant(t *testing.T) {
	// now 恰好等于实验时刻也滚动
	got, err := NextTrigger(date(7, 14, 0), 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(14, 13, 0), got)
}

func TestNextTriggerNoRollWhileLeadWindowOpen(t *testing.T) {
	// 触发时刻已过但实验还没开始：滚动只看实验时刻，不看触发时刻
	got, err := NextTrigger(date(7, 13, 59), 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(7, 13, 0), got)
}

func TestNextTriggerLeadOverOneDay(t *testing.T) {
	// 提前量超过 24 小时，触发时刻落到前一个日历日
	got, err := NextTrigger(date(5, 9, 0), 2, "14:00", 25*60)
	require.NoError(t, err)
	assert.Equal(t, date(6, 13, 0), got)
}

func TestNextTriggerZeroLead(t *testing.T) {
	got, err := NextTrigger(date(5, 9, 0), 2, "14:00", 0)
	require.NoError(t, err)
	assert.Equal(t, date(7, 14, 0), got)
}

func TestNextTriggerTargetEarlierInWeek(t *testing.T) {
	// 周六找周二 → 下周二
	got, err := NextTrigger(date(10, 9, 0), 1, "10:30", 30)
	require.NoError(t, err)
	assert.Equal(t, date(13, 10, 0), got)
}

func TestNextTriggerMinutePrecision(t *testing.T) {
	// now 的秒与纳秒不影响实验时刻
	now := time.Date(2026, 1, 5, 9, 0, 42, 999, time.UTC)
	got, err := NextTrigger(now, 2, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, date(7, 13, 0), got)
	assert.Zero(t, got.Second())
	assert.Zero(t, got.Nanosecond())
}

func TestNextTriggerInvalidLabTime(t *testing.T) {
	_, err := NextTrigger(date(5, 9, 0), 2, "25:00", 60)
	assert.Error(t, err)
}
