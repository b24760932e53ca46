// Package ratelimit provides per-key request budgets for the HTTP layer.
// The Redis implementation uses a fixed window (INCR + EXPIRE) so limits
// hold across replicas sharing one Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a request under key fits the current budget.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config describes one fixed window.
type Config struct {
	// Name prefixes Redis keys so independent limiters (create vs
	// redirect) do not share counters.
	Name string

	// Max requests per key per window.
	Max int64

	// Window duration.
	Window time.Duration
}

type redisLimiter struct {
	client *redis.Client
	cfg    Config
}

// NewRedis returns a Redis-backed fixed-window limiter.
func NewRedis(client *redis.Client, cfg Config) Limiter {
	return &redisLimiter{client: client, cfg: cfg}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.cfg.Name, key)

	// INCR then set the expiry only on the first hit of the window; the
	// pipeline keeps it to one round-trip.
	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= l.cfg.Max, nil
}

type noopLimiter struct{}

// NewNoop returns a limiter that allows everything. Used when Redis is
// disabled.
func NewNoop() Limiter { return noopLimiter{} }

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
