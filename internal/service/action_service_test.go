package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeActionStore 按仓储层的语义在内存里应用状态机变更：
// 历史记录写递增前的序号，auto_increment 开启时序号加一，跳过日期只增不减。
type fakeActionStore struct {
	sc      domain.ScheduleContext
	history []domain.GenerationHistory
	missing bool
}

func (f *fakeActionStore) GetContext(_ context.Context, scheduleID, userID uuid.UUID) (*domain.ScheduleContext, error) {
	if f.missing || scheduleID != f.sc.Schedule.ID || userID != f.sc.Schedule.UserID {
		return nil, pgx.ErrNoRows
	}
	sc := f.sc
	return &sc, nil
}

func (f *fakeActionStore) ApplyGeneration(_ context.Context, scheduleID uuid.UUID, now time.Time, via string,
	makeFilename func(practicalNumber int) string) (*domain.GenerationApplied, error) {
	if scheduleID != f.sc.Schedule.ID {
		return nil, pgx.ErrNoRows
	}
	n := f.sc.Schedule.CurrentPracticalNumber
	h := domain.GenerationHistory{
		ID:              uuid.New(),
		UserID:          f.sc.Schedule.UserID,
		ModuleCode:      f.sc.Module.Code,
		PracticalNumber: n,
		Filename:        makeFilename(n),
		GeneratedVia:    via,
		CreatedAt:       now,
	}
	f.history = append(f.history, h)
	if f.sc.Schedule.AutoIncrement {
		f.sc.Schedule.CurrentPracticalNumber++
	}
	f.sc.Schedule.LastGeneratedAt = &now
	return &domain.GenerationApplied{History: h, Schedule: f.sc.Schedule}, nil
}

func (f *fakeActionStore) GetUserSchedule(_ context.Context, scheduleID, userID uuid.UUID) (*domain.Schedule, error) {
	if f.missing || scheduleID != f.sc.Schedule.ID || userID != f.sc.Schedule.UserID {
		return nil, pgx.ErrNoRows
	}
	sch := f.sc.Schedule
	return &sch, nil
}

func (f *fakeActionStore) AddSkipDate(_ context.Context, scheduleID uuid.UUID, date string) (bool, error) {
	if scheduleID != f.sc.Schedule.ID {
		return false, pgx.ErrNoRows
	}
	if f.sc.Schedule.HasSkipDate(date) {
		return false, nil
	}
	f.sc.Schedule.SkipDates = append(f.sc.Schedule.SkipDates, date)
	return true, nil
}

type recordingEnqueuer struct {
	jobs []queue.DeliveryJob
	err  error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, job queue.DeliveryJob) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestActions(t *testing.T, autoIncrement bool) (*Actions, *fakeActionStore, *token.MemoryStore, *recordingEnqueuer, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 7, 12, 57, 0, 0, time.UTC))
	src := &fakeActionStore{
		sc: domain.ScheduleContext{
			Schedule: domain.Schedule{
				ID:                     uuid.New(),
				UserID:                 uuid.New(),
				CurrentPracticalNumber: 5,
				AutoIncrement:          autoIncrement,
				Status:                 domain.StatusActive,
				SendConfirmation:       true,
			},
			User:   domain.User{ID: uuid.New(), StudentID: "IT21001", Name: "Dinuka", Email: "d@example.com"},
			Module: domain.Module{Code: "IT1010", Name: "Programming I", Template: "classic", SheetType: "Practical"},
		},
	}
	src.sc.User.ID = src.sc.Schedule.UserID
	ts := token.NewMemoryStore(clk, 0)
	q := &recordingEnqueuer{}
	a := &Actions{store: src, ts: ts, q: q, clk: clk}
	return a, src, ts, q, clk
}

func TestConsumeGenerateAutoIncrement(t *testing.T) {
	a, src, ts, q, _ := newTestActions(t, true)
	sch := src.sc.Schedule

	tok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionGenerate)
	require.NoError(t, err)

	res, err := a.ConsumeGenerate(context.Background(), tok)
	require.NoError(t, err)

	// 历史记录用递增前的序号，序号恰好加一
	assert.Equal(t, 5, res.History.PracticalNumber)
	assert.Equal(t, 6, res.Schedule.CurrentPracticalNumber)
	assert.Equal(t, 6, res.NextNumber)
	assert.Equal(t, 6, src.sc.Schedule.CurrentPracticalNumber)
	assert.Equal(t, "email", res.History.GeneratedVia)
	assert.Equal(t, "IT1010_Practical_5.doc", res.History.Filename)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, res.History.ID, q.jobs[0].HistoryID)
	assert.Equal(t, 5, q.jobs[0].PracticalNumber)
	assert.Equal(t, 6, q.jobs[0].NextNumber)

	// 同一令牌不能第二次消费
	_, err = a.ConsumeGenerate(context.Background(), tok)
	assert.ErrorIs(t, err, token.ErrNotFound)
	assert.Len(t, src.history, 1)
}

func TestConsumeGenerateWithoutAutoIncrement(t *testing.T) {
	a, src, ts, _, _ := newTestActions(t, false)
	sch := src.sc.Schedule

	tok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionGenerate)
	require.NoError(t, err)

	res, err := a.ConsumeGenerate(context.Background(), tok)
	require.NoError(t, err)

	// 序号保持不变，历史仍然记录本次使用的序号
	assert.Equal(t, 5, res.History.PracticalNumber)
	assert.Equal(t, 5, res.Schedule.CurrentPracticalNumber)
	assert.Equal(t, 5, src.sc.Schedule.CurrentPracticalNumber)
}

func TestConsumeGenerateActionMismatch(t *testing.T) {
	a, src, ts, q, _ := newTestActions(t, true)
	sch := src.sc.Schedule

	skipTok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionSkip)
	require.NoError(t, err)

	_, err = a.ConsumeGenerate(context.Background(), skipTok)
	assert.ErrorIs(t, err, ErrActionMismatch)
	assert.Empty(t, src.history)
	assert.Empty(t, q.jobs)

	genTok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionGenerate)
	require.NoError(t, err)

	_, err = a.ConsumeSkip(context.Background(), genTok)
	assert.ErrorIs(t, err, ErrActionMismatch)
	assert.Empty(t, src.sc.Schedule.SkipDates)
}

func TestConsumeGenerateScheduleGone(t *testing.T) {
	a, src, ts, _, _ := newTestActions(t, true)
	sch := src.sc.Schedule
	src.missing = true

	tok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionGenerate)
	require.NoError(t, err)

	_, err = a.ConsumeGenerate(context.Background(), tok)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestConsumeGenerateEnqueueFailureKept(t *testing.T) {
	a, src, ts, q, _ := newTestActions(t, true)
	sch := src.sc.Schedule
	q.err = errors.New("redis down")

	tok, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionGenerate)
	require.NoError(t, err)

	// 入队失败只记日志，已提交的生成结果照常返回
	res, err := a.ConsumeGenerate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Schedule.CurrentPracticalNumber)
	assert.Len(t, src.history, 1)
}

func TestConsumeSkipIdempotentSameDay(t *testing.T) {
	a, src, ts, _, clk := newTestActions(t, true)
	sch := src.sc.Schedule
	today := clk.Now().Format("2006-01-02")

	first, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionSkip)
	require.NoError(t, err)
	second, err := ts.Issue(context.Background(), sch.ID, sch.UserID, token.ActionSkip)
	require.NoError(t, err)

	res, err := a.ConsumeSkip(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, today, res.Date)
	assert.Equal(t, []string{today}, src.sc.Schedule.SkipDates)

	// 同一天第二次 skip：集合不变，但第二枚令牌仍被消费掉
	res, err = a.ConsumeSkip(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, []string{today}, src.sc.Schedule.SkipDates)
	assert.Equal(t, 0, ts.Len())

	_, err = a.ConsumeSkip(context.Background(), second)
	assert.ErrorIs(t, err, token.ErrNotFound)
}
