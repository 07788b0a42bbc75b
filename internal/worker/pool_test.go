package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	p := NewPool(3, func(ctx context.Context, payload string) error {
		mu.Lock()
		seen[payload] = true
		mu.Unlock()
		return nil
	})
	p.Start(context.Background())

	jobs := []string{"a", "b", "c", "d", "e"}
	for _, j := range jobs {
		require.NoError(t, p.Submit(context.Background(), j))
	}
	p.Shutdown()

	assert.Len(t, seen, len(jobs))
	for _, j := range jobs {
		assert.True(t, seen[j], "job %q not processed", j)
	}
}

func TestPoolSubmitAfterCancel(t *testing.T) {
	release := make(chan struct{})
	p := NewPool(1, func(ctx context.Context, payload string) error {
		<-release // 占住唯一的协程
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	// 1 条在处理中，2 条占满缓冲
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(ctx, "filler"))
	}

	// 队列满且 ctx 已取消时 Submit 不会永久阻塞
	cancel()
	err := p.Submit(ctx, "late")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	p.Shutdown()
}
