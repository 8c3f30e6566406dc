// Package ratelimit throttles auth actions per identity key across fixed
// windows. Counters live in a shared store: Redis for multi-instance
// deployments, an in-process fallback otherwise. The limiter counts request
// volume only; it never inspects whether the guarded operation succeeded.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/farmhub/auth-api/internal/config"
)

// Scopes with independent budgets. Keys are normalized emails, so one
// mailbox exhausting its resend budget does not affect logins.
const (
	ScopeLogin     = "login"
	ScopeResendOTP = "resend_otp"
	ScopeVerifyOTP = "verify_otp"
)

// Store is the counter backend. Incr must be atomic: increment the key's
// counter within the window and report the resulting count plus the time
// until the window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Decision is the limiter's verdict for one request.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the client should wait when not allowed.
	RetryAfter time.Duration
}

// Limiter enforces the per-scope fixed-window budgets.
type Limiter struct {
	store  Store
	limits map[string]config.RateLimit
}

func New(store Store, limits config.RateLimits) *Limiter {
	return &Limiter{
		store: store,
		limits: map[string]config.RateLimit{
			ScopeLogin:     limits.Login,
			ScopeResendOTP: limits.ResendOTP,
			ScopeVerifyOTP: limits.VerifyOTP,
		},
	}
}

// Allow consumes one request from the scope's budget for the given key.
// An empty key is a pass-through: requests without an identifying email are
// left to downstream validation rather than throttled. Unknown scopes are
// also pass-through so a misconfigured route fails open, not closed.
func (l *Limiter) Allow(ctx context.Context, scope, key string) (Decision, error) {
	if key == "" {
		return Decision{Allowed: true}, nil
	}
	limit, ok := l.limits[scope]
	if !ok || limit.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	count, resetIn, err := l.store.Incr(ctx, bucketKey(scope, key), limit.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	if count > int64(limit.Limit) {
		return Decision{Allowed: false, RetryAfter: resetIn}, nil
	}
	return Decision{Allowed: true}, nil
}

func bucketKey(scope, key string) string {
	return "rl:" + scope + ":" + key
}
