// 单进程模式：API、扫描器、投递 worker 跑在同一个进程里。
// 小规模部署（单机免费层）用这个入口，规模上去再拆 cmd/ 下的三个进程。
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/config"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/db"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/docgen"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/drive"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/http/handler"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/scanner"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

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
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.Connect(initCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres init failed: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(initCtx, pool); err != nil {
		log.Fatalf("ensure schema failed: %v", err)
	}

	rdb, err := queue.Connect(initCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	defer rdb.Close()

	clk := clock.System{}
	tokens := token.NewRedisStore(rdb, clk, token.DefaultTTL)
	deliveries := queue.NewDeliveries(rdb, cfg.DeliveryQueue)
	actions := service.NewActions(pool, tokens, deliveries, clk)
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.BaseURL)
	if !mailer.Enabled() {
		log.Println("WARNING: smtp credentials not set, emails will fail")
	}
	od := drive.New(cfg.OneDriveClientID, cfg.OneDriveClientSecret, cfg.OneDriveRefreshToken)

	gen, err := docgen.NewGenerator(cfg.OutputDir)
	if err != nil {
		log.Fatalf("init generator failed: %v", err)
	}

	instanceID := uuid.NewString()

	// 扫描器。单进程无需跨进程锁
	sc := scanner.New(&dbSource{pool: pool}, tokens, mailer, clk)
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.ScanInterval), func() {
		runCtx, cancel := context.WithTimeout(context.Background(), cfg.ScanInterval)
		defer cancel()
		rep, err := sc.Scan(runCtx)
		if err != nil {
			log.Printf("scan failed: %v", err)
			return
		}
		log.Printf("scan done: scanned=%d fired=%d skipped=%d cooldown=%d errors=%d",
			rep.Scanned, rep.Fired, rep.Skipped, rep.Cooldown, rep.Errors)
	}); err != nil {
		log.Fatalf("schedule scan job failed: %v", err)
	}
	c.Start()
	defer c.Stop()

	// 投递 worker
	runner := worker.NewRunner(rdb, gen, mailer, od, clk, instanceID)
	wp := worker.NewPool(cfg.WorkerConcurrency, runner.HandleRaw)
	wp.Start(ctx)
	defer wp.Shutdown()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				worker.MoveDueDelayed(ctx, rdb, cfg.DeliveryQueue, instanceID)
			}
		}
	}()

	go func() {
		readyKey := queue.ReadyKey(cfg.DeliveryQueue)
		for {
			res, err := rdb.BLPop(ctx, 5*time.Second, readyKey).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("blpop error: %v", err)
				time.Sleep(time.Second)
				continue
			}
			if len(res) != 2 {
				continue
			}
			if err := wp.Submit(ctx, res[1]); err != nil {
				return
			}
		}
	}()

	// HTTP API
	engine := gin.Default()
	handler.Register(engine, handler.Deps{DB: pool, RDB: rdb, Actions: actions})

	log.Printf("all-in-one server starting on :%s (scan every %s)", cfg.HTTPPort, cfg.ScanInterval)
	if err := engine.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
