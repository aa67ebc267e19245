// Package locker 按 key 串行化的分布式锁抽象
//
// Ledger 用它按地点串行化评价写入与聚合重算。实现：
//   - redis/: SET NX PX + token 校验释放（多实例部署）
//   - Local: 进程内互斥（单实例或测试）
//   - NoOp: 不加锁，完全依赖存储事务
package locker

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired 在超时前未获得锁
var ErrNotAcquired = errors.New("locker: lock not acquired")

// Unlock 释放锁；只释放自己持有的锁
type Unlock func(ctx context.Context) error

// Locker 锁接口
type Locker interface {
	// Acquire 阻塞直到获得 key 上的锁或 ctx 结束
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// ============================================================================
// NoOp
// ============================================================================

// NoOp 不加锁
type NoOp struct{}

func (NoOp) Acquire(ctx context.Context, key string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

// ============================================================================
// Local
// ============================================================================

// Local 进程内按 key 互斥
type Local struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocal 创建进程内锁
func NewLocal() *Local {
	return &Local{locks: make(map[string]chan struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
