// Package notify carries the lock lifecycle notifications emitted by the
// coordinator. Events are delivered synchronously and in order relative to the
// operation that produced them; consumers that need buffering or cross-node
// delivery compose a Chan or Bus notifier.
package notify

import (
	"context"
	"time"
)

// Type names a lifecycle notification.
type Type string

const (
	// TypeAcquired is emitted when a quorum of stores granted the lock within
	// its validity window.
	TypeAcquired Type = "acquired"
	// TypeAttemptFailed is emitted after each acquisition attempt that did not
	// reach quorum and will be retried.
	TypeAttemptFailed Type = "attempt_failed"
	// TypeReleased is emitted after every release fan-out, regardless of how
	// many stores actually deleted their entry.
	TypeReleased Type = "released"
	// TypeExtended is emitted when a quorum of stores renewed the lock.
	TypeExtended Type = "extended"
	// TypeLockError tags a single store's failure during acquisition.
	TypeLockError Type = "lock_error"
	// TypeUnlockError tags a single store's failure during release.
	TypeUnlockError Type = "unlock_error"
	// TypeExtendError tags a single store's failure during extension.
	TypeExtendError Type = "extend_error"
	// TypeFatalError is emitted when an operation fails as a whole.
	TypeFatalError Type = "fatal_error"
)

// Event is a structured lock lifecycle notification. Only the fields relevant
// to the event's Type are populated.
type Event struct {
	Type     Type          `json:"type"`
	Op       string        `json:"op,omitempty"`
	Resource string        `json:"resource"`
	Token    string        `json:"token,omitempty"`
	Validity time.Duration `json:"validity,omitempty"`
	TTL      time.Duration `json:"ttl,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Store    string        `json:"store,omitempty"`
	Err      error         `json:"-"`
}

// Notifier receives lock lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, ev Event)

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop is a Notifier that discards all events.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}

// Chan delivers events on a channel. Delivery is non-blocking: when the
// channel is full the event is dropped rather than stalling the coordinator.
type Chan struct {
	C chan Event
}

// NewChan returns a Chan notifier with the given buffer size.
func NewChan(buffer int) *Chan {
	return &Chan{C: make(chan Event, buffer)}
}

// Notify implements Notifier.
func (c *Chan) Notify(_ context.Context, ev Event) {
	select {
	case c.C <- ev:
	default:
	}
}

// Multi fans each event out to every wrapped notifier, in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}
