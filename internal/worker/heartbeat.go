package worker

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const heartbeatTTL = 90 * time.Second

// Heartbeat 周期上报 worker 存活，Key 带 TTL，进程挂了自然过期
func Heartbeat(ctx context.Context, rdb *redis.Client, workerID string, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	key := "workers:alive:" + workerID
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	beat := func() {
		if err := rdb.Set(ctx, key, time.Now().Format(time.RFC3339), heartbeatTTL).Err(); err != nil {
			log.Printf("heartbeat: %v", err)
		}
	}
	beat()
	for {
		select {
		case <-ctx.Done():
			rdb.Del(context.Background(), key)
			return
		case <-ticker.C:
			beat()
		}
	}
}
