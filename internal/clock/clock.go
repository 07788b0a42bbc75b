// Package clock 提供可注入的时间源，核心逻辑不直接调用 time.Now，
// 测试里可以用 Fake 把“当前时间”固定住
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System 真实系统时钟
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fake 手动推进的时钟，测试用
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

func NewFake(t time.Time) *Fake {
	return &Fake{t: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set 重置当前时间
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

// Advance 把时钟向前推 d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}
