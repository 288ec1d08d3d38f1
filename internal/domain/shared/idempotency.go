package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a handled key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers keys that have already been handled. It backs
// client supplied idempotency keys on payment and cashout creation as well
// as deduplication of redelivered events in the relay.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed operation can be retried with it
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls deduplication in event handlers
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultIdempotencyConfig returns deduplication enabled with the default TTL
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: DefaultIdempotencyTTL}
}
