package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/config"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/docgen"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/drive"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := queue.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	defer rdb.Close()

	gen, err := docgen.NewGenerator(cfg.OutputDir)
	if err != nil {
		log.Fatalf("init generator failed: %v", err)
	}
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.BaseURL)
	od := drive.New(cfg.OneDriveClientID, cfg.OneDriveClientSecret, cfg.OneDriveRefreshToken)

	workerID := uuid.NewString()
	runner := worker.NewRunner(rdb, gen, mailer, od, clock.System{}, workerID)

	pool := worker.NewPool(cfg.WorkerConcurrency, runner.HandleRaw)
	pool.Start(ctx)
	defer pool.Shutdown()

	// 存活心跳
	go worker.Heartbeat(ctx, rdb, workerID, 30*time.Second)

	// 延时队列搬运器（每两秒扫描一次）
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				worker.MoveDueDelayed(ctx, rdb, cfg.DeliveryQueue, workerID)
			}
		}
	}()

	log.Printf("worker started: id=%s queue=%s concurrency=%d", workerID, cfg.DeliveryQueue, cfg.WorkerConcurrency)

	readyKey := queue.ReadyKey(cfg.DeliveryQueue)
	for {
		// BLPOP 返回 [key, value]，超时 5 秒便于响应退出信号
		res, err := rdb.BLPop(ctx, 5*time.Second, readyKey).Result()
		if err != nil {
			if err == redis.Nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if ctx.Err() != nil {
				log.Println("worker shutting down")
				return
			}
			log.Printf("blpop error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) != 2 {
			continue
		}
		if err := pool.Submit(ctx, res[1]); err != nil {
			return
		}
	}
}
