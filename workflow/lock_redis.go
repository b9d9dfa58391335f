package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	delCommand = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`
)

// NewRedisTemplateLock 分布式锁,多个实例同时导入同一个模板的时候使用
func NewRedisTemplateLock(redisClient redis.Cmdable) TemplateLock {
	return &redisTemplateLock{redisClient: redisClient}
}

type redisTemplateLock struct {
	redisClient redis.Cmdable
}

func (d *redisTemplateLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(ctx2 context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 之前成功上锁了,继续执行即可
		return f(ctx)
	}
	value := fmt.Sprintf("%d_%d", rand.Int(), time.Now().UnixNano())
	isLock, err := d.redisClient.SetNX(ctx, key, value, maxLockTimeDuration).Result()
	if err != nil {
		return errors.WithMessagef(ErrLockFailed, "[redisTemplateLock.NonBlockingSynchronized] key: %s, err: %v", key, err)
	}
	if !isLock {
		return errors.WithMessagef(ErrLockFailed, "[redisTemplateLock.NonBlockingSynchronized] key: %s has been locked", key)
	}
	defer d.releaseKey(key, value)
	return f(context.WithValue(ctx, lockKey(key), value))
}

func (d *redisTemplateLock) releaseKey(key string, value string) {
	// ctx 可能已经被cancel，释放锁需要新开一个context
	reply, err := d.redisClient.Eval(context.Background(), delCommand, []string{key}, value).Int64()
	if err != nil {
		slog.Error("[redisTemplateLock.releaseKey] release key failed", "key", key, "err", err)
		return
	}
	if reply != 1 {
		// 锁已经过期或者被别人拿走
		slog.Warn("[redisTemplateLock.releaseKey] key not released", "key", key, "reply", reply)
	}
}
