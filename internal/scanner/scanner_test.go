package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	contexts  []domain.ScheduleContext
	listErr   error
	markCalls []uuid.UUID
}

func (f *fakeSource) ListActive(ctx context.Context) ([]domain.ScheduleContext, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.contexts, nil
}

func (f *fakeSource) MarkEmailSent(ctx context.Context, scheduleID uuid.UUID, at time.Time) error {
	f.markCalls = append(f.markCalls, scheduleID)
	for i := range f.contexts {
		if f.contexts[i].Schedule.ID == scheduleID {
			ts := at
			f.contexts[i].Schedule.LastEmailSent = &ts
		}
	}
	return nil
}

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

// 周三 2026-01-07，实验 14:00，提前 60 分钟 → 触发时刻 13:00
func testContext() domain.ScheduleContext {
	return domain.ScheduleContext{
		Schedule: domain.Schedule{
			ID:                     uuid.New(),
			UserID:                 uuid.New(),
			DayOfWeek:              2,
			LabTime:                "14:00",
			GenerateBeforeMinutes:  60,
			CurrentPracticalNumber: 5,
			Status:                 domain.StatusActive,
		},
		User:   domain.User{ID: uuid.New(), Name: "Dinuka", Email: "dinuka@example.com"},
		Module: domain.Module{ID: uuid.New(), Code: "IT1010", Name: "Programming I", SheetType: "Practical"},
	}
}

func newTestScanner(src Source, n notify.Notifier, at time.Time) (*Scanner, *token.MemoryStore, *clock.Fake) {
	clk := clock.NewFake(at)
	ts := token.NewMemoryStore(clk, token.DefaultTTL)
	return New(src, ts, n, clk), ts, clk
}

func TestScanFiresInsideWindow(t *testing.T) {
	sc := testContext()
	src := &fakeSource{contexts: []domain.ScheduleContext{sc}}
	n := &fakeNotifier{}
	// 12:57，触发时刻 13:00 在 5 分钟窗口内
	s, ts, _ := newTestScanner(src, n, time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Fired: 1}, rep)

	require.Len(t, n.sent, 1)
	sent := n.sent[0]
	assert.Equal(t, "dinuka@example.com", sent.ToEmail)
	assert.Equal(t, 5, sent.PracticalNumber)
	assert.NotEmpty(t, sent.GenerateToken)
	assert.NotEmpty(t, sent.SkipToken)
	assert.NotEqual(t, sent.GenerateToken, sent.SkipToken)
	assert.Equal(t, []uuid.UUID{sc.Schedule.ID}, src.markCalls)

	// 两枚令牌绑定同一条规则、动作各异
	d, err := ts.Consume(context.Background(), sent.GenerateToken)
	require.NoError(t, err)
	assert.Equal(t, token.ActionGenerate, d.Action)
	assert.Equal(t, sc.Schedule.ID, d.ScheduleID)
}

func TestScanWindowBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		at    time.Time
		fired int
	}{
		{"too early", time.Date(2026, 1, 7, 12, 54, 59, 0, time.UTC), 0},
		{"window start inclusive", time.Date(2026, 1, 7, 12, 55, 0, 0, time.UTC), 1},
		{"at trigger", time.Date(2026, 1, 7, 13, 0, 0, 0, time.UTC), 1},
		{"past trigger", time.Date(2026, 1, 7, 13, 0, 1, 0, time.UTC), 0},
		{"well past trigger", time.Date(2026, 1, 7, 13, 1, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{contexts: []domain.ScheduleContext{testContext()}}
			n := &fakeNotifier{}
			s, _, _ := newTestScanner(src, n, tc.at)

			rep, err := s.Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.fired, rep.Fired)
		})
	}
}

func TestScanCooldownSuppressesRepeat(t *testing.T) {
	sc := testContext()
	src := &fakeSource{contexts: []domain.ScheduleContext{sc}}
	n := &fakeNotifier{}
	s, _, clk := newTestScanner(src, n, time.Date(2026, 1, 7, 12, 55, 0, 0, time.UTC))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rep.Fired)

	// 3 分钟后还在窗口内，但冷却中
	clk.Advance(3 * time.Minute)
	rep, err = s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Fired)
	assert.Equal(t, 1, rep.Cooldown)
	assert.Len(t, n.sent, 1)
}

func TestScanSkipDateSuppresses(t *testing.T) {
	sc := testContext()
	sc.Schedule.SkipDates = []string{"2026-01-07"}
	src := &fakeSource{contexts: []domain.ScheduleContext{sc}}
	n := &fakeNotifier{}
	s, _, _ := newTestScanner(src, n, time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Skipped: 1}, rep)
	assert.Empty(t, n.sent)
	assert.Empty(t, src.markCalls)
}

func TestScanNotifyFailureLeavesTimestampUnset(t *testing.T) {
	sc := testContext()
	src := &fakeSource{contexts: []domain.ScheduleContext{sc}}
	n := &fakeNotifier{err: errors.New("smtp down")}
	s, _, clk := newTestScanner(src, n, time.Date(2026, 1, 7, 12, 55, 0, 0, time.UTC))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Errors)
	assert.Empty(t, src.markCalls)

	// 发信恢复后，下一轮还在窗口内会重试
	n.err = nil
	clk.Advance(2 * time.Minute)
	rep, err = s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fired)
}

func TestScanIsolatesPerScheduleErrors(t *testing.T) {
	bad := testContext()
	bad.Schedule.LabTime = "bogus"
	good := testContext()
	src := &fakeSource{contexts: []domain.ScheduleContext{bad, good}}
	n := &fakeNotifier{}
	s, _, _ := newTestScanner(src, n, time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, 1, rep.Errors)
	assert.Equal(t, 1, rep.Fired)
}

func TestScanListFailure(t *testing.T) {
	src := &fakeSource{listErr: errors.New("db down")}
	s, _, _ := newTestScanner(src, &fakeNotifier{}, time.Now())

	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}

func TestScanCustomWindow(t *testing.T) {
	src := &fakeSource{contexts: []domain.ScheduleContext{testContext()}}
	n := &fakeNotifier{}
	clk := clock.NewFake(time.Date(2026, 1, 7, 12, 51, 0, 0, time.UTC))
	ts := token.NewMemoryStore(clk, token.DefaultTTL)
	s := New(src, ts, n, clk, WithWindow(10*time.Minute))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fired)
}

type fakeLocker struct {
	held     bool
	ttls     []time.Duration
	released int
}

func (f *fakeLocker) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	f.ttls = append(f.ttls, ttl)
	return !f.held, nil
}

func (f *fakeLocker) Release(ctx context.Context) error {
	f.released++
	return nil
}

func TestScanLockTTLIndependentOfWindow(t *testing.T) {
	src := &fakeSource{contexts: []domain.ScheduleContext{testContext()}}
	lk := &fakeLocker{}
	clk := clock.NewFake(time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))
	ts := token.NewMemoryStore(clk, token.DefaultTTL)
	s := New(src, ts, &fakeNotifier{}, clk, WithWindow(30*time.Minute), WithLocker(lk))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fired)

	// 锁时长固定，不随窗口配置变化
	require.Len(t, lk.ttls, 1)
	assert.Equal(t, lockTTL, lk.ttls[0])
	assert.NotEqual(t, s.window, lk.ttls[0])
	assert.Equal(t, 1, lk.released)
}

func TestScanLockHeldByAnotherInstance(t *testing.T) {
	src := &fakeSource{contexts: []domain.ScheduleContext{testContext()}}
	lk := &fakeLocker{held: true}
	n := &fakeNotifier{}
	clk := clock.NewFake(time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))
	ts := token.NewMemoryStore(clk, token.DefaultTTL)
	s := New(src, ts, n, clk, WithLocker(lk))

	rep, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
	assert.Empty(t, n.sent)
	assert.Equal(t, 0, lk.released)
}
