package token

import (
	"context"
	"testing"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*MemoryStore, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC))
	return NewMemoryStore(clk, DefaultTTL), clk
}

func TestConsumeExactlyOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sid, uid := uuid.New(), uuid.New()

	v, err := s.Issue(ctx, sid, uid, ActionGenerate)
	require.NoError(t, err)

	d, err := s.Consume(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, sid, d.ScheduleID)
	assert.Equal(t, uid, d.UserID)
	assert.Equal(t, ActionGenerate, d.Action)

	// 第二次消费失败
	_, err = s.Consume(ctx, v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeUnknownToken(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Consume(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeExpired(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	v, err := s.Issue(ctx, uuid.New(), uuid.New(), ActionSkip)
	require.NoError(t, err)

	clk.Advance(DefaultTTL + time.Second)
	_, err = s.Consume(ctx, v)
	assert.ErrorIs(t, err, ErrExpired)

	// 过期消费也算消费，再试是 not found
	_, err = s.Consume(ctx, v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSiblingTokensIndependent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sid, uid := uuid.New(), uuid.New()

	gen, err := s.Issue(ctx, sid, uid, ActionGenerate)
	require.NoError(t, err)
	skip, err := s.Issue(ctx, sid, uid, ActionSkip)
	require.NoError(t, err)
	require.NotEqual(t, gen, skip)

	// 消费其中一枚不影响另一枚
	_, err = s.Consume(ctx, gen)
	require.NoError(t, err)

	d, err := s.Consume(ctx, skip)
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, d.Action)
}

func TestSweep(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	_, err := s.Issue(ctx, uuid.New(), uuid.New(), ActionGenerate)
	require.NoError(t, err)

	clk.Advance(DefaultTTL / 2)
	_, err = s.Issue(ctx, uuid.New(), uuid.New(), ActionGenerate)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	// 再过半个 TTL 多一点，只有第一枚过期
	clk.Advance(DefaultTTL/2 + time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestNewValueUnpredictable(t *testing.T) {
	a, err := NewValue()
	require.NoError(t, err)
	b, err := NewValue()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40) // 32 字节的 URL 安全编码
}
