// Package recurrence 计算每周重复日程的下一次触发时间。
// 触发时间 = 下一个 day_of_week 的 lab_time（分钟精度）再往前 generate_before_minutes 分钟。
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday 把 time.Weekday（周日=0）换算成本系统的周一=0..周日=6
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseLabTime 解析 "HH:MM"
func ParseLabTime(labTime string) (hour, minute int, err error) {
	parts := strings.Split(labTime, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid lab_time %q", labTime)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lab_time %q: %v", labTime, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lab_time %q: %v", labTime, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid lab_time %q: out of range", labTime)
	}
	return hour, minute, nil
}

// NextTrigger 计算下一次触发时间。
//  1. daysUntil = (dayOfWeek - 今天) mod 7
//  2. daysUntil == 0 且今天的 lab_time 已过（含恰好等于）时滚动到下周
//  3. 实验时刻取分钟精度（秒与纳秒清零）
//  4. 触发时刻 = 实验时刻 - leadMinutes
//
// leadMinutes 不做上限裁剪，提前量超过 24 小时会落到更早的日历日，这是有意为之。
// dayOfWeek 的取值范围由上游保证（0-6），此处不校验。
func NextTrigger(now time.Time, dayOfWeek int, labTime string, leadMinutes int) (time.Time, error) {
	hour, minute, err := ParseLabTime(labTime)
	if err != nil {
		return time.Time{}, err
	}

	daysUntil := ((dayOfWeek - Weekday(now)) % 7 + 7) % 7
	if daysUntil == 0 {
		today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		// now 恰好等于实验时刻也算已过，滚动到下周
		if !now.Before(today) {
			daysUntil = 7
		}
	}

	lab := time.Date(now.Year(), now.Month(), now.Day()+daysUntil, hour, minute, 0, 0, now.Location())
	return lab.Add(-time.Duration(leadMinutes) * time.Minute), nil
}
