// Package service 承载 HTTP 层之下的业务逻辑：
// 用户注册登录、模块与调度规则管理、令牌消费后的动作执行。
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserExists         = errors.New("student id or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// HashPassword 口令摘要。注册与登录使用同一实现
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

type RegisterParams struct {
	StudentID string `json:"student_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

// Register 注册新用户并签发 API Key
func Register(ctx context.Context, db *pgxpool.Pool, p RegisterParams) (*domain.User, error) {
	studentID := strings.TrimSpace(p.StudentID)
	email := strings.ToLower(strings.TrimSpace(p.Email))

	exists, err := repo.UserExists(ctx, db, studentID, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	v, err := token.NewValue()
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:           uuid.New(),
		StudentID:    studentID,
		Name:         strings.TrimSpace(p.Name),
		Email:        email,
		PasswordHash: HashPassword(p.Password),
		APIKey:       "sk_" + v,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := repo.InsertUser(ctx, db, u); err != nil {
		return nil, err
	}
	return u, nil
}

type LoginParams struct {
	StudentID string `json:"student_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// Login 校验学号与口令，成功后刷新 last_login 并返回用户（含 API Key）
func Login(ctx context.Context, db *pgxpool.Pool, p LoginParams) (*domain.User, error) {
	u, err := repo.GetUserByStudentID(ctx, db, strings.TrimSpace(p.StudentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || u.PasswordHash != HashPassword(p.Password) {
		return nil, ErrInvalidCredentials
	}
	now := time.Now()
	if err := repo.UpdateLastLogin(ctx, db, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return u, nil
}
