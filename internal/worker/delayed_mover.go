package worker

import (
	"context"
	"log"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"

	"github.com/redis/go-redis/v9"
)

const moverLockTTL = 20 * time.Second

// MoveDueDelayed 把到期的延迟任务搬回就绪队列。
// 多副本部署时用 Redis 锁保证同一时刻只有一个搬运者。
func MoveDueDelayed(ctx context.Context, rdb *redis.Client, queueName, ownerID string) {
	lockKey := "lock:delayed-mover:" + queueName
	ok, err := queue.AcquireLock(ctx, rdb, lockKey, ownerID, moverLockTTL)
	if err != nil {
		log.Printf("acquire mover lock: %v", err)
		return
	}
	if !ok {
		return
	}
	defer queue.ReleaseLock(ctx, rdb, lockKey, ownerID)

	n, err := queue.MoveDueDelayedToReady(ctx, rdb, queueName, 100)
	if err != nil {
		log.Printf("move due delayed jobs: %v", err)
		return
	}
	if n > 0 {
		log.Printf("moved %d delayed jobs to ready queue %s", n, queueName)
	}
}
