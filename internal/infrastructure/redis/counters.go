package redisinfra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter implements fixed-window counting on Redis with atomic
// INCR + first-hit EXPIRE. Counts are shared across instances; the window
// is eventually consistent, which is acceptable for a defense-in-depth
// limiter.
type WindowCounter struct {
	rdb redis.UniversalClient
}

func NewWindowCounter(rdb redis.UniversalClient) *WindowCounter {
	return &WindowCounter{rdb: rdb}
}

// Incr bumps the counter for key, starting a new window when none is active.
// It returns the count inside the current window and the time remaining until
// the window resets.
func (c *WindowCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}
	ttl, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// Counter without a deadline (expire lost); fall back to the full window.
		ttl = window
	}
	return count, ttl, nil
}
