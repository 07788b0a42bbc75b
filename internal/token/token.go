// Package token 管理邮件按钮对应的一次性操作令牌。
// 每次触发签发 generate / skip 两枚互相独立的令牌，24 小时过期，
// 消费即删除，同一令牌最多成功消费一次。
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionGenerate Action = "generate"
	ActionSkip     Action = "skip"
)

// DefaultTTL 令牌有效期，与原始系统保持 24 小时
const DefaultTTL = 24 * time.Hour

var (
	ErrNotFound = errors.New("token not found")
	ErrExpired  = errors.New("token expired")
)

// Data 令牌绑定的数据
type Data struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	UserID     uuid.UUID `json:"user_id"`
	Action     Action    `json:"action"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Store interface {
	// Issue 签发一枚令牌，返回令牌串
	Issue(ctx context.Context, scheduleID, userID uuid.UUID, action Action) (string, error)
	// Consume 消费令牌：不存在返回 ErrNotFound，已过期删除并返回 ErrExpired，
	// 否则删除并返回绑定数据（恰好一次语义）
	Consume(ctx context.Context, value string) (*Data, error)
}

// NewValue 生成不可猜测的令牌串：32 字节随机数，URL 安全编码
func NewValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
