package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// NewLocalTemplateLock 单进程内的锁,多实例部署需要使用 NewRedisTemplateLock
func NewLocalTemplateLock() TemplateLock {
	return &localTemplateLock{
		holders: make(map[string]*localLockHolder),
	}
}

type localTemplateLock struct {
	mu      sync.Mutex
	holders map[string]*localLockHolder
}

type localLockHolder struct {
	value    string    // 持有者标识
	expireAt time.Time // 过期之后其他人可以抢占
}

func (l *localTemplateLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 已经持有锁，可重入，直接执行
		return f(ctx)
	}
	value := fmt.Sprintf("%d_%d", rand.Int(), time.Now().UnixNano())
	if !l.tryAcquire(key, value, maxLockTimeDuration) {
		return errors.WithMessagef(ErrLockFailed, "[localTemplateLock.NonBlockingSynchronized] key: %s has been locked", key)
	}
	defer l.release(key, value)
	return f(context.WithValue(ctx, lockKey(key), value))
}

func (l *localTemplateLock) tryAcquire(key, value string, maxLockTimeDuration time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if holder, ok := l.holders[key]; ok && now.Before(holder.expireAt) {
		return false
	}
	l.holders[key] = &localLockHolder{value: value, expireAt: now.Add(maxLockTimeDuration)}
	return true
}

func (l *localTemplateLock) release(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.holders[key]
	if !ok {
		return
	}
	if holder.value != value {
		// 锁已经过期被别人拿走了
		slog.Warn("[localTemplateLock.release] value mismatch", "key", key, "expected", holder.value, "got", value)
		return
	}
	delete(l.holders, key)
}
