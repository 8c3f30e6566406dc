// Package memory provides in-process fallbacks for the Redis-backed
// blacklist and rate-limit counters. Suitable for single-instance
// deployments and tests; multi-instance deployments should configure Redis.
package memory

import (
	"context"
	"sync"
	"time"
)

// Blacklist is a mutex-guarded set of revoked token IDs with per-entry
// expiry. Stale entries are pruned lazily on writes and by a background
// sweep.
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time // tokenID -> expiry
}

func NewBlacklist() *Blacklist {
	b := &Blacklist{entries: make(map[string]time.Time)}
	go b.cleanup()
	return b
}

func (b *Blacklist) Add(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[tokenID] = time.Now().Add(ttl)
	return nil
}

func (b *Blacklist) Contains(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(b.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// cleanup removes entries whose tokens have naturally expired every 5 minutes.
func (b *Blacklist) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		now := time.Now()
		b.mu.Lock()
		for id, exp := range b.entries {
			if now.After(exp) {
				delete(b.entries, id)
			}
		}
		b.mu.Unlock()
	}
}
