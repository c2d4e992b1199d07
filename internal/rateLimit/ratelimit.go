// Package rateLimit imposes a fixed-window request budget per client. The
// window counter lives in Redis, so every api replica enforces one shared
// limit.
package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/ticketforge/hold-engine/internal/adapters/redis"
	"github.com/ticketforge/hold-engine/internal/observability"
)

type RateLimiter struct {
	cache  *redisadapter.Cache
	limit  int64
	window time.Duration
}

func NewRateLimiter(cache *redisadapter.Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{cache: cache, limit: int64(limit), window: window}
}

// Allow counts the request against key's current window and reports whether
// it fits the budget. A Redis failure never blocks traffic.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	counter := "rl:" + key

	pipe := rl.cache.Client().Pipeline()
	count := pipe.Incr(ctx, counter)
	pipe.Expire(ctx, counter, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	if count.Val() > rl.limit {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
