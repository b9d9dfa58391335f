package workflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrLockFailed = errors.New("lock failed")
)

type TemplateLock interface {
	// NonBlockingSynchronized
	//  @Description:  1.非阻塞同步块,如果没有拿到锁，立刻返回 ErrLockFailed
	//                 2.可以重入锁,同一个ctx链路上再次加同一个key直接执行
	//  @param ctx 原来的ctx
	//  @param key 锁的key
	//  @param maxLockTimeDuration 锁最大的时间,超过之后锁自动失效
	//  @param f 具体执行函数的闭包
	//  @return error
	NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error
}

type lockKey string

// TemplateLockKey 导入模板时使用的锁key
func TemplateLockKey(title string) string {
	return "workflow_template_" + title
}
