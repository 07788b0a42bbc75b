package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/config"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/db"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/scanner"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// dbSource 把 repo 层包装成扫描器需要的数据面
type dbSource struct {
	pool *pgxpool.Pool
}

func (s *dbSource) ListActive(ctx context.Context) ([]domain.ScheduleContext, error) {
	return repo.ListActiveContexts(ctx, s.pool)
}

func (s *dbSource) MarkEmailSent(ctx context.Context, scheduleID uuid.UUID, at time.Time) error {
	return repo.MarkEmailSent(ctx, s.pool, scheduleID, at)
}

func main() {
	ctx := context.Background()

	// 加载配置
	cfg := config.Load()

	// 初始化 Postgres
	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres init failed: %v", err)
	}
	defer pool.Close()

	// 初始化 Redis
	rdb, err := queue.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	defer rdb.Close()

	clk := clock.System{}
	tokens := token.NewRedisStore(rdb, clk, token.DefaultTTL)
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.BaseURL)
	if !mailer.Enabled() {
		log.Println("WARNING: smtp credentials not set, reminder emails will fail")
	}

	instanceID := uuid.NewString()
	lock := queue.NewLock(rdb, "lock:scanner", instanceID)
	sc := scanner.New(&dbSource{pool: pool}, tokens, mailer, clk, scanner.WithLocker(lock))

	c := cron.New()
	spec := fmt.Sprintf("@every %s", cfg.ScanInterval)
	_, err = c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), cfg.ScanInterval)
		defer cancel()

		rep, err := sc.Scan(runCtx)
		if err != nil {
			log.Printf("scan failed: %v", err)
			return
		}
		log.Printf("scan done: scanned=%d fired=%d skipped=%d cooldown=%d errors=%d",
			rep.Scanned, rep.Fired, rep.Skipped, rep.Cooldown, rep.Errors)
		recordScanMetrics(runCtx, rdb, rep)
	})
	if err != nil {
		log.Fatalf("schedule scan job failed: %v", err)
	}

	log.Printf("scheduler started: instance=%s interval=%s", instanceID, cfg.ScanInterval)
	c.Run()
}

// recordScanMetrics 扫描统计写 Redis，指标接口读这两个键
func recordScanMetrics(ctx context.Context, rdb *redis.Client, rep scanner.Report) {
	if err := rdb.HSet(ctx, "metrics:scanner:last", map[string]interface{}{
		"time":     time.Now().UTC().Format(time.RFC3339),
		"scanned":  rep.Scanned,
		"fired":    rep.Fired,
		"skipped":  rep.Skipped,
		"cooldown": rep.Cooldown,
		"errors":   rep.Errors,
	}).Err(); err != nil {
		log.Printf("record scan metrics: %v", err)
	}
	if err := rdb.Incr(ctx, "metrics:scanner:ticks").Err(); err != nil {
		log.Printf("incr scan ticks: %v", err)
	}
}
