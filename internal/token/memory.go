package token

import (
	"context"
	"sync"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"

	"github.com/google/uuid"
)

// MemoryStore 进程内令牌表：读时惰性过期，另提供 Sweep 供周期清理。
// 单进程部署（不配 Redis）和测试都用它。
type MemoryStore struct {
	mu   sync.Mutex
	clk  clock.Clock
	ttl  time.Duration
	data map[string]Data
}

func NewMemoryStore(clk clock.Clock, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		clk:  clk,
		ttl:  ttl,
		data: make(map[string]Data),
	}
}

func (s *MemoryStore) Issue(ctx context.Context, scheduleID, userID uuid.UUID, action Action) (string, error) {
	value, err := NewValue()
	if err != nil {
		return "", err
	}
	now := s.clk.Now()
	s.mu.Lock()
	s.data[value] = Data{
		ScheduleID: scheduleID,
		UserID:     userID,
		Action:     action,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.mu.Unlock()
	return value, nil
}

func (s *MemoryStore) Consume(ctx context.Context, value string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[value]
	if !ok {
		return nil, ErrNotFound
	}
	// 不论过期与否一律删除，过期令牌不能留给第二次尝试
	delete(s.data, value)
	if s.clk.Now().After(d.ExpiresAt) {
		return nil, ErrExpired
	}
	return &d, nil
}

// Sweep 清理所有已过期令牌，返回清理数量
func (s *MemoryStore) Sweep() int {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for v, d := range s.data {
		if now.After(d.ExpiresAt) {
			delete(s.data, v)
			removed++
		}
	}
	return removed
}

// Len 当前存活令牌数（含未被读到的过期令牌）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
