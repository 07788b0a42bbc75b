// Package queue 提供基于 Redis 的投递任务队列。
// 使用 Redis List 实现 FIFO 的就绪队列(ready)，ZSET 实现按时间触发的
// 延时队列(delayed)，重试耗尽的任务进入死信队列(dlq)等待人工处理。
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReadyKey 就绪队列（List），worker 通过 BLPOP 消费
func ReadyKey(queueName string) string {
	return "queue:" + queueName + ":ready"
}

// DelayedKey 延时队列（ZSET），score 为触发时间的 Unix 时间戳
func DelayedKey(queueName string) string {
	return "queue:" + queueName + ":delayed"
}

// DLQKey 死信队列（List）
func DLQKey(queueName string) string {
	return "queue:" + queueName + ":dlq"
}

// Connect 解析 URL、建立连接并 PING 验证
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// EnqueueReady 任务入就绪队列（RPUSH，保证 FIFO）
func EnqueueReady(ctx context.Context, rdb *redis.Client, queueName string, payload string) error {
	return rdb.RPush(ctx, ReadyKey(queueName), payload).Err()
}

// EnqueueDelayed 任务入延时队列，triggerAt 到期后由搬运器移入就绪队列
func EnqueueDelayed(ctx context.Context, rdb *redis.Client, queueName string, payload string, triggerAt time.Time) error {
	return rdb.ZAdd(ctx, DelayedKey(queueName), redis.Z{
		Score:  float64(triggerAt.Unix()),
		Member: payload,
	}).Err()
}

// moveDueScript 原子地把到期元素从 delayed 移到 ready，
// 避免“查完再删”两步之间其他实例重复搬运
var moveDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
    redis.call('ZREM', KEYS[1], m)
    redis.call('RPUSH', KEYS[2], m)
end
return #due
`)

// MoveDueDelayedToReady 把到期的延时任务搬到就绪队列，返回实际搬运数量
func MoveDueDelayedToReady(ctx context.Context, rdb *redis.Client, queueName string, limit int) (int, error) {
	now := time.Now().Unix()
	n, err := moveDueScript.Run(ctx, rdb,
		[]string{DelayedKey(queueName), ReadyKey(queueName)},
		fmt.Sprintf("%d", now), limit).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// EnqueueDLQ 重试耗尽的任务入死信队列
func EnqueueDLQ(ctx context.Context, rdb *redis.Client, queueName string, payload string) error {
	return rdb.RPush(ctx, DLQKey(queueName), payload).Err()
}

// ListDLQ 查看死信队列内容（LRANGE，不移除），索引语义同 Redis
func ListDLQ(ctx context.Context, rdb *redis.Client, queueName string, start, stop int64) ([]string, error) {
	return rdb.LRange(ctx, DLQKey(queueName), start, stop).Result()
}

// ReplayDLQ 把最多 count 条死信任务放回就绪队列重试，返回实际重放数量
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queueName string, count int) (int, error) {
	moved := 0
	for i := 0; i < count; i++ {
		val, err := rdb.LPop(ctx, DLQKey(queueName)).Result()
		if err != nil {
			if err == redis.Nil {
				break
			}
			return moved, err
		}
		if err := rdb.RPush(ctx, ReadyKey(queueName), val).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
