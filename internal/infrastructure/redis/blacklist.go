package redisinfra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "bl:"

// Blacklist stores revoked refresh-token unique IDs in Redis. Entries carry a
// TTL equal to the token's remaining lifetime, so the set prunes itself once
// a revoked token would have expired anyway.
type Blacklist struct {
	rdb redis.UniversalClient
}

func NewBlacklist(rdb redis.UniversalClient) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Add revokes a token ID until its natural expiry.
func (b *Blacklist) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired on its own; nothing to revoke.
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+tokenID, "1", ttl).Err()
}

// Contains reports whether the token ID has been revoked.
func (b *Blacklist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
