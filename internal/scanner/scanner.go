// Package scanner 周期扫描 active 调度规则，命中触发窗口时
// 签发令牌对并发送提醒邮件。所有时间判定走注入的时钟，可测。
package scanner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/recurrence"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
)

const (
	// DefaultWindow 触发窗口：trigger-window <= now <= trigger 时发信（闭区间），
	// 即触发时刻落在未来 window 以内
	DefaultWindow = 5 * time.Minute
	// DefaultCooldown 同一规则两次提醒之间的最小间隔
	DefaultCooldown = time.Hour
	// lockTTL 分布式锁时长，按单轮扫描的上限估，与触发窗口无关
	lockTTL = 2 * time.Minute
)

// Source 扫描器的数据面：读 active 规则，发信成功后回写时间戳
type Source interface {
	ListActive(ctx context.Context) ([]domain.ScheduleContext, error)
	MarkEmailSent(ctx context.Context, scheduleID uuid.UUID, at time.Time) error
}

// Locker 跨进程互斥。单进程部署传 nil，多副本部署传 Redis 锁
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

type Scanner struct {
	src      Source
	tokens   token.Store
	notifier notify.Notifier
	clk      clock.Clock
	locker   Locker

	window   time.Duration
	cooldown time.Duration

	mu sync.Mutex // 同进程内禁止扫描重入
}

type Option func(*Scanner)

func WithWindow(d time.Duration) Option   { return func(s *Scanner) { s.window = d } }
func WithCooldown(d time.Duration) Option { return func(s *Scanner) { s.cooldown = d } }
func WithLocker(l Locker) Option          { return func(s *Scanner) { s.locker = l } }

func New(src Source, tokens token.Store, notifier notify.Notifier, clk clock.Clock, opts ...Option) *Scanner {
	s := &Scanner{
		src:      src,
		tokens:   tokens,
		notifier: notifier,
		clk:      clk,
		window:   DefaultWindow,
		cooldown: DefaultCooldown,
	}
	if s.clk == nil {
		s.clk = clock.System{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Report 一轮扫描的统计
type Report struct {
	Scanned  int // 本轮检查的规则数
	Fired    int // 发出提醒的规则数
	Skipped  int // 因跳过日期被抑制的规则数
	Cooldown int // 在窗口内但处于冷却期的规则数
	Errors   int // 处理出错的规则数（已隔离，详见日志）
}

// Scan 执行一轮扫描。规则之间互相隔离：单条出错记日志并继续。
// 同进程重入直接返回空报告；配置了分布式锁时抢不到锁也一样。
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		log.Println("scan already in progress, skipping this round")
		return Report{}, nil
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, lockTTL)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			log.Println("scan lock held by another instance, skipping this round")
			return Report{}, nil
		}
		defer func() {
			if err := s.locker.Release(ctx); err != nil {
				log.Printf("release scan lock: %v", err)
			}
		}()
	}

	contexts, err := s.src.ListActive(ctx)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for i := range contexts {
		rep.Scanned++
		outcome, err := s.handle(ctx, &contexts[i])
		if err != nil {
			rep.Errors++
			log.Printf("scan schedule %s: %v", contexts[i].Schedule.ID, err)
			continue
		}
		switch outcome {
		case outcomeFired:
			rep.Fired++
		case outcomeSkipDate:
			rep.Skipped++
		case outcomeCooldown:
			rep.Cooldown++
		}
	}
	return rep, nil
}

type outcome int

const (
	outcomeIdle outcome = iota // 不在窗口内
	outcomeFired
	outcomeSkipDate
	outcomeCooldown
)

func (s *Scanner) handle(ctx context.Context, sc *domain.ScheduleContext) (outcome, error) {
	now := s.clk.Now()
	sch := &sc.Schedule

	trigger, err := recurrence.NextTrigger(now, sch.DayOfWeek, sch.LabTime, sch.GenerateBeforeMinutes)
	if err != nil {
		return outcomeIdle, err
	}

	// 窗口判定：0 <= trigger-now <= window，两端闭。
	// 触发时刻已过（delta < 0）不补发，等下周
	delta := trigger.Sub(now)
	if delta < 0 || delta > s.window {
		return outcomeIdle, nil
	}

	// 冷却：距上次提醒不足 cooldown 则不重发
	if sch.LastEmailSent != nil && now.Sub(*sch.LastEmailSent) < s.cooldown {
		return outcomeCooldown, nil
	}

	// 跳过日期按扫描当天（本地日期）判定
	if sch.HasSkipDate(now.Format("2006-01-02")) {
		return outcomeSkipDate, nil
	}

	genTok, err := s.tokens.Issue(ctx, sch.ID, sch.UserID, token.ActionGenerate)
	if err != nil {
		return outcomeIdle, err
	}
	skipTok, err := s.tokens.Issue(ctx, sch.ID, sch.UserID, token.ActionSkip)
	if err != nil {
		return outcomeIdle, err
	}

	n := notify.Notification{
		ToEmail:         sc.User.Email,
		StudentName:     sc.User.Name,
		ModuleName:      sc.Module.Name,
		ModuleCode:      sc.Module.Code,
		PracticalNumber: sch.CurrentPracticalNumber,
		DayName:         sch.DayName(),
		LabTime:         sch.LabTime,
		SheetType:       sc.Module.EffectiveSheetType(),
		UseZeroPadding:  sch.UseZeroPadding,
		GenerateToken:   genTok,
		SkipToken:       skipTok,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		// 投递失败不动 last_email_sent，下轮扫描还在窗口内就会重试
		return outcomeIdle, err
	}

	if err := s.src.MarkEmailSent(ctx, sch.ID, now); err != nil {
		return outcomeIdle, err
	}
	sent := now
	sch.LastEmailSent = &sent

	log.Printf("reminder sent: schedule=%s module=%s practical=%d trigger=%s",
		sch.ID, sc.Module.Code, sch.CurrentPracticalNumber, trigger.Format(time.RFC3339))
	return outcomeFired, nil
}
