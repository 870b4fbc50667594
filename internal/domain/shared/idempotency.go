package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed external event IDs (e.g. Stripe event ids)
type IdempotencyStore interface {
	// MarkProcessed records the id for ttl. It returns false when the id was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// IsProcessed reports whether the id has been recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Close releases resources
	Close() error
}
