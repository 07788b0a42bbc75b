package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/docgen"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrActionMismatch   = errors.New("token action mismatch")
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Enqueuer 投递任务入队。投递异步化之后，入队失败只记日志，
// 不回滚已经提交的生成事务。
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.DeliveryJob) error
}

// actionStore 动作执行器的数据面，对应状态机的两个变更入口
type actionStore interface {
	GetContext(ctx context.Context, scheduleID, userID uuid.UUID) (*domain.ScheduleContext, error)
	ApplyGeneration(ctx context.Context, scheduleID uuid.UUID, now time.Time, via string,
		makeFilename func(practicalNumber int) string) (*domain.GenerationApplied, error)
	GetUserSchedule(ctx context.Context, scheduleID, userID uuid.UUID) (*domain.Schedule, error)
	AddSkipDate(ctx context.Context, scheduleID uuid.UUID, date string) (bool, error)
}

// pgActionStore 把数据面绑到 Postgres 仓储函数上
type pgActionStore struct {
	db *pgxpool.Pool
}

func (p pgActionStore) GetContext(ctx context.Context, scheduleID, userID uuid.UUID) (*domain.ScheduleContext, error) {
	return repo.GetContext(ctx, p.db, scheduleID, userID)
}

func (p pgActionStore) ApplyGeneration(ctx context.Context, scheduleID uuid.UUID, now time.Time, via string,
	makeFilename func(practicalNumber int) string) (*domain.GenerationApplied, error) {
	return repo.ApplyGeneration(ctx, p.db, scheduleID, now, via, makeFilename)
}

func (p pgActionStore) GetUserSchedule(ctx context.Context, scheduleID, userID uuid.UUID) (*domain.Schedule, error) {
	return repo.GetUserSchedule(ctx, p.db, scheduleID, userID)
}

func (p pgActionStore) AddSkipDate(ctx context.Context, scheduleID uuid.UUID, date string) (bool, error) {
	return repo.AddSkipDate(ctx, p.db, scheduleID, date)
}

// Actions 令牌消费后的动作执行器
type Actions struct {
	store actionStore
	ts    token.Store
	q     Enqueuer
	clk   clock.Clock
}

func NewActions(db *pgxpool.Pool, ts token.Store, q Enqueuer, clk clock.Clock) *Actions {
	if clk == nil {
		clk = clock.System{}
	}
	return &Actions{store: pgActionStore{db: db}, ts: ts, q: q, clk: clk}
}

// GenerateResult generate 动作的执行结果
type GenerateResult struct {
	History    domain.GenerationHistory
	Schedule   domain.Schedule
	ModuleName string
	SheetType  string
	NextNumber int
}

// ConsumeGenerate 消费 generate 令牌：
// 令牌恰好一次；单事务写历史、按配置递增序号；之后投递任务入队。
// 入队失败不影响已提交的状态变更，worker 侧有死信可查。
func (a *Actions) ConsumeGenerate(ctx context.Context, value string) (*GenerateResult, error) {
	data, err := a.ts.Consume(ctx, value)
	if err != nil {
		return nil, err
	}
	if data.Action != token.ActionGenerate {
		return nil, ErrActionMismatch
	}

	sc, err := a.store.GetContext(ctx, data.ScheduleID, data.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	now := a.clk.Now()
	sheetType := sc.Module.EffectiveSheetType()
	applied, err := a.store.ApplyGeneration(ctx, sc.Schedule.ID, now, "email", func(n int) string {
		return docgen.Filename(sc.Module.Code, sheetType, n, sc.Schedule.UseZeroPadding)
	})
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{
		History:    applied.History,
		Schedule:   applied.Schedule,
		ModuleName: sc.Module.Name,
		SheetType:  sheetType,
		NextNumber: applied.Schedule.CurrentPracticalNumber,
	}

	if a.q != nil {
		job := queue.DeliveryJob{
			HistoryID:        applied.History.ID,
			ScheduleID:       applied.Schedule.ID,
			UserID:           sc.User.ID,
			MaxRetries:       3,
			StudentName:      sc.User.Name,
			StudentID:        sc.User.StudentID,
			Email:            sc.User.Email,
			ModuleCode:       sc.Module.Code,
			ModuleName:       sc.Module.Name,
			Template:         sc.Module.Template,
			SheetType:        sheetType,
			PracticalNumber:  applied.History.PracticalNumber,
			NextNumber:       applied.Schedule.CurrentPracticalNumber,
			UseZeroPadding:   sc.Schedule.UseZeroPadding,
			UploadToOneDrive: sc.Schedule.UploadToOneDrive,
			SendConfirmation: sc.Schedule.SendConfirmation,
		}
		if err := a.q.Enqueue(ctx, job); err != nil {
			log.Printf("enqueue delivery failed: history=%s err=%v", applied.History.ID, err)
		}
	}
	return res, nil
}

// SkipResult skip 动作的执行结果
type SkipResult struct {
	Schedule domain.Schedule
	Date     string // 被跳过的日期 "YYYY-MM-DD"
	Added    bool   // false 表示该日期此前已跳过（幂等空操作）
}

// ConsumeSkip 消费 skip 令牌：把今天加入跳过列表。
// 序号不变，不写历史。同一天重复 skip 幂等。
func (a *Actions) ConsumeSkip(ctx context.Context, value string) (*SkipResult, error) {
	data, err := a.ts.Consume(ctx, value)
	if err != nil {
		return nil, err
	}
	if data.Action != token.ActionSkip {
		return nil, ErrActionMismatch
	}

	sch, err := a.store.GetUserSchedule(ctx, data.ScheduleID, data.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	date := a.clk.Now().Format("2006-01-02")
	added, err := a.store.AddSkipDate(ctx, sch.ID, date)
	if err != nil {
		return nil, err
	}
	if added {
		sch.SkipDates = append(sch.SkipDates, date)
	}
	return &SkipResult{Schedule: *sch, Date: date, Added: added}, nil
}
