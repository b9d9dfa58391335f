package workflow

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地redis, 通过 REDIS_ADDR 指定, 没有配置的时候跳过
func newTestRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisTemplateLock(t *testing.T) {
	client := newTestRedisClient(t)
	lock := NewRedisTemplateLock(client)
	ctx := context.Background()
	key := TemplateLockKey("redis_test_" + time.Now().Format("150405.000000"))

	t.Run("同一个key互斥", func(t *testing.T) {
		err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			inner := lock.NonBlockingSynchronized(context.Background(), key, time.Minute, func(context.Context) error {
				return nil
			})
			assert.True(t, errors.Is(inner, ErrLockFailed))
			// 同一个链路可以重入
			return lock.NonBlockingSynchronized(ctx, key, time.Minute, func(context.Context) error {
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("执行完之后释放", func(t *testing.T) {
		exists, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})

	t.Run("不会释放别人的锁", func(t *testing.T) {
		err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(context.Context) error {
			// 模拟锁过期之后被别人拿走
			return client.Set(ctx, key, "other", time.Minute).Err()
		})
		require.NoError(t, err)
		value, err := client.Get(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, "other", value)
		require.NoError(t, client.Del(ctx, key).Err())
	})
}
