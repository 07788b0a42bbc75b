package worker

import (
	"context"
	"log"
	"sync"
)

// Handler 处理一条队列载荷
type Handler func(ctx context.Context, payload string) error

// Pool 固定大小的处理协程池。BLPOP 由调用方负责，
// 取到的载荷经 Submit 分发给空闲协程。
type Pool struct {
	size    int
	jobs    chan string
	handler Handler
	wg      sync.WaitGroup
}

func NewPool(size int, handler Handler) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:    size,
		jobs:    make(chan string, size*2),
		handler: handler,
	}
}

// Start 启动处理协程，ctx 取消后在排空 jobs 通道前不退出
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(n int) {
			defer p.wg.Done()
			for payload := range p.jobs {
				if err := p.handler(ctx, payload); err != nil {
					log.Printf("worker %d: handler error: %v", n, err)
				}
			}
		}(i)
	}
}

// Submit 投递一条载荷，阻塞直到有协程接收或 ctx 取消
func (p *Pool) Submit(ctx context.Context, payload string) error {
	select {
	case p.jobs <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown 关闭投递通道并等待在途任务完成
func (p *Pool) Shutdown() {
	close(p.jobs)
	p.wg.Wait()
}
