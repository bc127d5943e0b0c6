// Package store defines the backing-store capability used by the quorum lock
// coordinator. Each Store is one independent key-value instance; the
// coordinator never treats any single instance as authoritative. In-memory and
// Redis implementations are provided.
package store

import (
	"context"
	"time"
)

// Store is a single backing store participating in the quorum. All three
// mutating operations must be atomic with respect to their value check:
// a conditional set never overwrites a live entry, and compare-and-mutate
// operations leave no window between the equality check and the mutation.
type Store interface {
	// SetIfAbsent creates key→value with the given TTL only if no live entry
	// exists for key. It returns true when the entry was created and false
	// when a live entry already held the key.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete removes the entry for key only if its stored value
	// equals value. It returns true on match-and-delete, false otherwise.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	// CompareAndRenew resets the entry's expiry to now+ttl only if its stored
	// value equals value. It returns true on match-and-renew, false otherwise.
	CompareAndRenew(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Name identifies this store handle in error events.
	Name() string

	// Close releases resources held by the store handle. It is idempotent.
	Close() error
}
