// Package cooldown throttles repeated operations per key using redis.
//
// It is used to rate limit challenge re-issuance: the first Acquire within a
// window wins, later calls learn how long the caller has to wait.
package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter gates an operation behind a per-key cooldown window.
type Limiter interface {
	// Acquire tries to start the window for key. It returns true when the
	// caller may proceed, or false plus the remaining wait time.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)

	// Reset clears the window for key, allowing the next Acquire to succeed.
	Reset(ctx context.Context, key string) error
}

// RedisLimiter is a Limiter backed by redis SET NX with expiry.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter creates a redis-backed Limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "cooldown:",
	}
}

// Acquire tries to claim the cooldown window for key.
func (l *RedisLimiter) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return true, 0, nil
	}

	fk := l.prefix + key

	acquired, err := l.client.SetNX(ctx, fk, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, err
	}
	if acquired {
		return true, 0, nil
	}

	remaining, err := l.client.PTTL(ctx, fk).Result()
	if err != nil {
		return false, 0, err
	}
	if remaining < 0 {
		// Key expired between SetNX and PTTL; treat as a full window.
		remaining = window
	}

	return false, remaining, nil
}

// Reset clears the cooldown window for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
