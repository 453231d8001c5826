package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores applied dedup keys to prevent double-application
// of statistics deltas. It is a fast-path cache in front of the aggregator's
// durable applied-delta record, not a replacement for it.
type IdempotencyStore interface {
	// MarkProcessed marks a dedup key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a dedup key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
