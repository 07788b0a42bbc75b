package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 跨进程互斥锁：SETNX + TTL 获取，Lua 校验持有者后释放/续期。
// 扫描串行化、延时队列搬运、投递任务去重都用它。

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
else
    return 0
end`)

var renewScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
else
    return 0
end`)

// AcquireLock 尝试加锁（仅当键不存在时成功），owner 标识持有者
func AcquireLock(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, owner, ttl).Result()
}

// ReleaseLock 仅当持有者匹配时释放，返回是否真正删除
func ReleaseLock(ctx context.Context, rdb *redis.Client, key, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, rdb, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RenewLock 仅当持有者匹配时续期，返回是否成功
func RenewLock(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, rdb, []string{key}, owner, int(ttl.Milliseconds())).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Lock 绑定了键与持有者的锁句柄，给扫描器做跨进程互斥用
type Lock struct {
	rdb   *redis.Client
	key   string
	owner string
}

func NewLock(rdb *redis.Client, key, owner string) *Lock {
	return &Lock{rdb: rdb, key: key, owner: owner}
}

func (l *Lock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return AcquireLock(ctx, l.rdb, l.key, l.owner, ttl)
}

func (l *Lock) Release(ctx context.Context) error {
	_, err := ReleaseLock(ctx, l.rdb, l.key, l.owner)
	return err
}
