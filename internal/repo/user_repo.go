package repo

import (
	"context"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, student_id, name, email, password_hash, api_key, is_active, created_at, last_login`

// InsertUser 创建新用户
func InsertUser(ctx context.Context, db *pgxpool.Pool, u *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, student_id, name, email, password_hash, api_key, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, u.ID, u.StudentID, u.Name, u.Email, u.PasswordHash, u.APIKey, u.IsActive)
	return err
}

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.StudentID, &u.Name, &u.Email, &u.PasswordHash, &u.APIKey, &u.IsActive, &u.CreatedAt, &u.LastLogin,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByAPIKey API Key 鉴权查询，只返回启用状态的用户
func GetUserByAPIKey(ctx context.Context, db *pgxpool.Pool, apiKey string) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE api_key=$1 AND is_active=TRUE
	`, apiKey)
	return scanUser(row)
}

// GetUserByStudentID 登录用，按学号查启用状态的用户
func GetUserByStudentID(ctx context.Context, db *pgxpool.Pool, studentID string) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE student_id=$1 AND is_active=TRUE
	`, studentID)
	return scanUser(row)
}

func GetUserByID(ctx context.Context, db *pgxpool.Pool, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id=$1
	`, id)
	return scanUser(row)
}

// UserExists 注册前判重：学号或邮箱任一已占用即返回 true
func UserExists(ctx context.Context, db *pgxpool.Pool, studentID, email string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE student_id=$1 OR email=$2)
	`, studentID, email).Scan(&exists)
	return exists, err
}

// UpdateLastLogin 登录成功后刷新最近登录时间
func UpdateLastLogin(ctx context.Context, db *pgxpool.Pool, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(ctx, `
		UPDATE users SET last_login=$2 WHERE id=$1
	`, id, at)
	return err
}

// CountUsers 服务状态页用
func CountUsers(ctx context.Context, db *pgxpool.Pool) (int, error) {
	var n int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
