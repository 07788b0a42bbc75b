package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/recurrence"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidSchedule   = errors.New("invalid schedule parameters")
)

type ScheduleParams struct {
	ModuleID              uuid.UUID `json:"module_id" binding:"required"`
	DayOfWeek             int       `json:"day_of_week"`
	LabTime               string    `json:"lab_time" binding:"required"`
	GenerateBeforeMinutes int       `json:"generate_before_minutes"`
	StartingNumber        int       `json:"starting_number"`
	AutoIncrement         *bool     `json:"auto_increment"`
	UseZeroPadding        bool      `json:"use_zero_padding"`
	UploadToOneDrive      bool      `json:"upload_to_onedrive"`
	SendConfirmation      *bool     `json:"send_confirmation"`
}

func validateScheduleParams(p ScheduleParams) error {
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6", ErrInvalidSchedule)
	}
	if _, _, err := recurrence.ParseLabTime(p.LabTime); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if p.GenerateBeforeMinutes < 0 {
		return fmt.Errorf("%w: generate_before_minutes must be >= 0", ErrInvalidSchedule)
	}
	return nil
}

// CreateSchedule 创建调度规则，新规则默认 active
func CreateSchedule(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID, p ScheduleParams) (*domain.Schedule, error) {
	if err := validateScheduleParams(p); err != nil {
		return nil, err
	}
	// 模块必须属于本用户
	if _, err := repo.GetUserModule(ctx, db, p.ModuleID, userID); err != nil {
		return nil, err
	}

	starting := p.StartingNumber
	if starting <= 0 {
		starting = 1
	}
	autoInc := true
	if p.AutoIncrement != nil {
		autoInc = *p.AutoIncrement
	}
	confirm := true
	if p.SendConfirmation != nil {
		confirm = *p.SendConfirmation
	}

	s := &domain.Schedule{
		ID:                     uuid.New(),
		UserID:                 userID,
		ModuleID:               p.ModuleID,
		DayOfWeek:              p.DayOfWeek,
		LabTime:                p.LabTime,
		GenerateBeforeMinutes:  p.GenerateBeforeMinutes,
		CurrentPracticalNumber: starting,
		AutoIncrement:          autoInc,
		UseZeroPadding:         p.UseZeroPadding,
		Status:                 domain.StatusActive,
		SkipDates:              []string{},
		UploadToOneDrive:       p.UploadToOneDrive,
		SendConfirmation:       confirm,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}
	if err := repo.InsertSchedule(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSchedule 更新调度参数。序号、跳过日期、状态不在此更新
func UpdateSchedule(ctx context.Context, db *pgxpool.Pool, userID, scheduleID uuid.UUID, p ScheduleParams) (*domain.Schedule, error) {
	if err := validateScheduleParams(p); err != nil {
		return nil, err
	}
	s, err := repo.GetUserSchedule(ctx, db, scheduleID, userID)
	if err != nil {
		return nil, err
	}
	s.DayOfWeek = p.DayOfWeek
	s.LabTime = p.LabTime
	s.GenerateBeforeMinutes = p.GenerateBeforeMinutes
	if p.AutoIncrement != nil {
		s.AutoIncrement = *p.AutoIncrement
	}
	s.UseZeroPadding = p.UseZeroPadding
	s.UploadToOneDrive = p.UploadToOneDrive
	if p.SendConfirmation != nil {
		s.SendConfirmation = *p.SendConfirmation
	}
	if err := repo.UpdateSchedule(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ChangeStatus 执行状态迁移：active 与 paused 互通，
// disabled 是终态，只能显式重新激活回 active。
func ChangeStatus(ctx context.Context, db *pgxpool.Pool, userID, scheduleID uuid.UUID, to string) (*domain.Schedule, error) {
	if !domain.ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	s, err := repo.GetUserSchedule(ctx, db, scheduleID, userID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(s.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	if s.Status != to {
		if err := repo.UpdateScheduleStatus(ctx, db, s.ID, to); err != nil {
			return nil, err
		}
		s.Status = to
	}
	return s, nil
}

// SyncSchedules 批量替换：删除用户现有模块与调度后按客户端快照重建。
// 桌面端全量同步用，走不了增量。
type SyncModule struct {
	Code            string           `json:"code" binding:"required"`
	Name            string           `json:"name" binding:"required"`
	Template        string           `json:"template"`
	SheetType       string           `json:"sheet_type"`
	CustomSheetType string           `json:"custom_sheet_type"`
	UseZeroPadding  bool             `json:"use_zero_padding"`
	OutputPath      string           `json:"output_path"`
	Schedules       []ScheduleParams `json:"schedules"`
}

func SyncSchedules(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID, mods []SyncModule) (modules, schedules int, err error) {
	if err = repo.DeleteModulesByUser(ctx, db, userID); err != nil {
		return 0, 0, err
	}
	for _, sm := range mods {
		m := &domain.Module{
			ID:              uuid.New(),
			UserID:          userID,
			Code:            sm.Code,
			Name:            sm.Name,
			Template:        sm.Template,
			SheetType:       sm.SheetType,
			CustomSheetType: sm.CustomSheetType,
			UseZeroPadding:  sm.UseZeroPadding,
			OutputPath:      sm.OutputPath,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}
		if m.Template == "" {
			m.Template = "classic"
		}
		if m.SheetType == "" {
			m.SheetType = "Practical"
		}
		if err = repo.InsertModule(ctx, db, m); err != nil {
			return modules, schedules, err
		}
		modules++
		for _, sp := range sm.Schedules {
			sp.ModuleID = m.ID
			if _, err = CreateSchedule(ctx, db, userID, sp); err != nil {
				return modules, schedules, err
			}
			schedules++
		}
	}
	return modules, schedules, nil
}
