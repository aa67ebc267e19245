// Package redis 基于 Redis 的 locker.Locker 实现
//
// 获取：SET key token NX PX ttl，失败后按 retryInterval 轮询直到 ctx 结束。
// 释放：Lua 脚本比对 token 后 DEL，避免误删已过期后被他人持有的锁。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tragic-bricks/internal/shared/locker"
)

const (
	keyPrefix            = "tragic-bricks:lock:"
	defaultTTL           = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker Redis 锁
type Locker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
}

var _ locker.Locker = (*Locker)(nil)

// NewLocker 从 URL 创建 Redis 锁，例如 "redis://localhost:6379/0"
func NewLocker(redisURL string, ttl time.Duration) (*Locker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewLockerFromClient(client, ttl), nil
}

// NewLockerFromClient 复用已有连接
func NewLockerFromClient(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{client: client, ttl: ttl, retryInterval: defaultRetryInterval}
}

// Acquire 获取锁
func (l *Locker) Acquire(ctx context.Context, key string) (locker.Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, locker.ErrNotAcquired
			}
			return nil, fmt.Errorf("locker: acquire %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, locker.ErrNotAcquired
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(redisKey, token string) locker.Unlock {
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("locker: release: %w", err)
		}
		return nil
	}
}

// Close 关闭连接
func (l *Locker) Close() error {
	return l.client.Close()
}
