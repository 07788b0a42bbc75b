package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, user_id, module_id, day_of_week, lab_time, generate_before_minutes,
    current_practical_number, auto_increment, use_zero_padding, status, skip_dates,
    upload_to_onedrive, send_confirmation, last_email_sent, last_generated_at, created_at, updated_at`

func scanSchedule(row interface{ Scan(dest ...any) error }) (*domain.Schedule, error) {
	var s domain.Schedule
	var skipRaw []byte
	if err := row.Scan(
		&s.ID, &s.UserID, &s.ModuleID, &s.DayOfWeek, &s.LabTime, &s.GenerateBeforeMinutes,
		&s.CurrentPracticalNumber, &s.AutoIncrement, &s.UseZeroPadding, &s.Status, &skipRaw,
		&s.UploadToOneDrive, &s.SendConfirmation, &s.LastEmailSent, &s.LastGeneratedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(skipRaw) > 0 {
		if err := json.Unmarshal(skipRaw, &s.SkipDates); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func InsertSchedule(ctx context.Context, db *pgxpool.Pool, s *domain.Schedule) error {
	skip, err := json.Marshal(emptyIfNil(s.SkipDates))
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO schedules (id, user_id, module_id, day_of_week, lab_time, generate_before_minutes,
            current_practical_number, auto_increment, use_zero_padding, status, skip_dates,
            upload_to_onedrive, send_confirmation, last_email_sent, last_generated_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`, s.ID, s.UserID, s.ModuleID, s.DayOfWeek, s.LabTime, s.GenerateBeforeMinutes,
		s.CurrentPracticalNumber, s.AutoIncrement, s.UseZeroPadding, s.Status, skip,
		s.UploadToOneDrive, s.SendConfirmation, s.LastEmailSent, s.LastGeneratedAt)
	return err
}

func ListSchedulesByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) ([]domain.Schedule, error) {
	rows, err := db.Query(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE user_id=$1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// GetUserSchedule 查询调度规则并校验归属用户
func GetUserSchedule(ctx context.Context, db *pgxpool.Pool, id, userID uuid.UUID) (*domain.Schedule, error) {
	row := db.QueryRow(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id=$1 AND user_id=$2
	`, id, userID)
	return scanSchedule(row)
}

// UpdateSchedule 更新可编辑字段。序号与跳过日期不走这里：
// current_practical_number 与 skip_dates 只能由状态机修改。
func UpdateSchedule(ctx context.Context, db *pgxpool.Pool, s *domain.Schedule) error {
	_, err := db.Exec(ctx, `
		UPDATE schedules
        SET day_of_week=$2, lab_time=$3, generate_before_minutes=$4, auto_increment=$5,
            use_zero_padding=$6, upload_to_onedrive=$7, send_confirmation=$8, updated_at=NOW()
        WHERE id=$1
	`, s.ID, s.DayOfWeek, s.LabTime, s.GenerateBeforeMinutes, s.AutoIncrement,
		s.UseZeroPadding, s.UploadToOneDrive, s.SendConfirmation)
	return err
}

// UpdateScheduleStatus 状态迁移落库，迁移合法性由 service 层校验
func UpdateScheduleStatus(ctx context.Context, db *pgxpool.Pool, id uuid.UUID, status string) error {
	_, err := db.Exec(ctx, `
		UPDATE schedules SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, status)
	return err
}

func DeleteSchedule(ctx context.Context, db *pgxpool.Pool, id, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		DELETE FROM schedules WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}

// MarkEmailSent 提醒邮件投递成功后刷新 last_email_sent（冷却窗口起点）
func MarkEmailSent(ctx context.Context, db *pgxpool.Pool, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(ctx, `
		UPDATE schedules SET last_email_sent=$2, updated_at=NOW() WHERE id=$1
	`, id, at)
	return err
}

// CountActiveSchedules 服务状态页用
func CountActiveSchedules(ctx context.Context, db *pgxpool.Pool) (int, error) {
	var n int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM schedules WHERE status='active'`).Scan(&n)
	return n, err
}

// ListActiveContexts 扫描器输入：所有 active 的调度规则，连同用户与模块
func ListActiveContexts(ctx context.Context, db *pgxpool.Pool) ([]domain.ScheduleContext, error) {
	rows, err := db.Query(ctx, `
		SELECT s.id, s.user_id, s.module_id, s.day_of_week, s.lab_time, s.generate_before_minutes,
               s.current_practical_number, s.auto_increment, s.use_zero_padding, s.status, s.skip_dates,
               s.upload_to_onedrive, s.send_confirmation, s.last_email_sent, s.last_generated_at, s.created_at, s.updated_at,
               u.id, u.student_id, u.name, u.email, u.password_hash, u.api_key, u.is_active, u.created_at, u.last_login,
               m.id, m.user_id, m.code, m.name, m.template, m.sheet_type, m.custom_sheet_type, m.use_zero_padding, m.output_path, m.created_at, m.updated_at
        FROM schedules s
        JOIN users u ON u.id = s.user_id
        JOIN modules m ON m.id = s.module_id
        WHERE s.status = 'active' AND u.is_active = TRUE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ScheduleContext
	for rows.Next() {
		var c domain.ScheduleContext
		var skipRaw []byte
		if err := rows.Scan(
			&c.Schedule.ID, &c.Schedule.UserID, &c.Schedule.ModuleID, &c.Schedule.DayOfWeek, &c.Schedule.LabTime, &c.Schedule.GenerateBeforeMinutes,
			&c.Schedule.CurrentPracticalNumber, &c.Schedule.AutoIncrement, &c.Schedule.UseZeroPadding, &c.Schedule.Status, &skipRaw,
			&c.Schedule.UploadToOneDrive, &c.Schedule.SendConfirmation, &c.Schedule.LastEmailSent, &c.Schedule.LastGeneratedAt, &c.Schedule.CreatedAt, &c.Schedule.UpdatedAt,
			&c.User.ID, &c.User.StudentID, &c.User.Name, &c.User.Email, &c.User.PasswordHash, &c.User.APIKey, &c.User.IsActive, &c.User.CreatedAt, &c.User.LastLogin,
			&c.Module.ID, &c.Module.UserID, &c.Module.Code, &c.Module.Name, &c.Module.Template, &c.Module.SheetType, &c.Module.CustomSheetType, &c.Module.UseZeroPadding, &c.Module.OutputPath, &c.Module.CreatedAt, &c.Module.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(skipRaw) > 0 {
			if err := json.Unmarshal(skipRaw, &c.Schedule.SkipDates); err != nil {
				return nil, err
			}
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// GetContext 令牌消费时取完整上下文（schedule + user + module），校验归属
func GetContext(ctx context.Context, db *pgxpool.Pool, scheduleID, userID uuid.UUID) (*domain.ScheduleContext, error) {
	sch, err := GetUserSchedule(ctx, db, scheduleID, userID)
	if err != nil {
		return nil, err
	}
	u, err := GetUserByID(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	m, err := GetUserModule(ctx, db, sch.ModuleID, userID)
	if err != nil {
		return nil, err
	}
	return &domain.ScheduleContext{Schedule: *sch, User: *u, Module: *m}, nil
}

// ApplyGeneration 在单个事务内完成 generate 动作的全部落库：
// 行锁读取当前序号 → 写入历史记录 → 视 auto_increment 递增序号并刷新 last_generated_at。
// makeFilename 用事务内读到的序号生成文件名，保证历史记录与实际生成一致。
func ApplyGeneration(ctx context.Context, db *pgxpool.Pool, scheduleID uuid.UUID, now time.Time, via string,
	makeFilename func(practicalNumber int) string) (*domain.GenerationApplied, error) {

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id=$1 FOR UPDATE
	`, scheduleID)
	sch, err := scanSchedule(row)
	if err != nil {
		return nil, err
	}

	number := sch.CurrentPracticalNumber
	rec := domain.GenerationHistory{
		ID:              uuid.New(),
		UserID:          sch.UserID,
		PracticalNumber: number,
		Filename:        makeFilename(number),
		GeneratedVia:    via,
		CreatedAt:       now,
	}
	// module_code 从模块表取快照
	if err := tx.QueryRow(ctx, `SELECT code FROM modules WHERE id=$1`, sch.ModuleID).Scan(&rec.ModuleCode); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO generation_history (id, user_id, module_code, practical_number, filename, generated_via, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, rec.ModuleCode, rec.PracticalNumber, rec.Filename, rec.GeneratedVia, rec.CreatedAt); err != nil {
		return nil, err
	}

	if sch.AutoIncrement {
		sch.CurrentPracticalNumber++
	}
	sch.LastGeneratedAt = &now
	if _, err := tx.Exec(ctx, `
		UPDATE schedules
        SET current_practical_number=$2, last_generated_at=$3, updated_at=NOW()
        WHERE id=$1
	`, sch.ID, sch.CurrentPracticalNumber, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &domain.GenerationApplied{History: rec, Schedule: *sch}, nil
}

// AddSkipDate 幂等地把日期加入跳过列表，返回是否真的新增。
// 行锁保证并发 skip 不会写丢。
func AddSkipDate(ctx context.Context, db *pgxpool.Pool, scheduleID uuid.UUID, date string) (bool, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var skipRaw []byte
	if err := tx.QueryRow(ctx, `
		SELECT skip_dates FROM schedules WHERE id=$1 FOR UPDATE
	`, scheduleID).Scan(&skipRaw); err != nil {
		return false, err
	}
	var dates []string
	if len(skipRaw) > 0 {
		if err := json.Unmarshal(skipRaw, &dates); err != nil {
			return false, err
		}
	}
	for _, d := range dates {
		if d == date {
			// 同一天重复 skip 是空操作
			return false, tx.Commit(ctx)
		}
	}
	dates = append(dates, date)
	b, err := json.Marshal(dates)
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE schedules SET skip_dates=$2, updated_at=NOW() WHERE id=$1
	`, scheduleID, b); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
