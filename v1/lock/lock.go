package lock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-quorlock/v1/notify"
	"github.com/mirkobrombin/go-quorlock/v1/store"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-quorlock/v1/lock")

// Errors returned by the coordinator.
var (
	ErrNoStores        = errors.New("quorlock: at least one backing store is required")
	ErrTooManyRetries  = errors.New("quorlock: max retries exceeded")
	ErrValidityExpired = errors.New("quorlock: validity expired before quorum settled")
	ErrExtendFailed    = errors.New("quorlock: quorum not reached while extending lock")
)

// Coordinator defaults. They are deliberately conservative; tune them per
// deployment through the With options.
const (
	DefaultRetries      = 3
	DefaultRetryDelay   = 200 * time.Millisecond
	DefaultDriftFactor  = 0.01
	DefaultSafetyMargin = 2 * time.Millisecond
)

// Coordinator orchestrates lock acquisition, release and extension across a
// fixed set of backing stores. It holds no per-lock state: ownership lives
// entirely in the stores, as token-valued entries under the resource key, and
// a Coordinator is safe for concurrent use by multiple goroutines.
type Coordinator struct {
	stores []store.Store
	quorum int

	retries      int
	retryDelay   time.Duration
	driftFactor  float64
	safetyMargin time.Duration

	tokens   TokenSource
	notifier notify.Notifier

	traceEnabled bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetries sets the total number of acquisition attempts.
func WithRetries(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithDriftFactor sets the fraction of the TTL reserved for clock drift
// between stores. Values outside [0, 1) are ignored.
func WithDriftFactor(f float64) Option {
	return func(c *Coordinator) {
		if f >= 0 && f < 1 {
			c.driftFactor = f
		}
	}
}

// WithSafetyMargin sets the fixed duration subtracted from every validity
// window on top of the drift allowance.
func WithSafetyMargin(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.safetyMargin = d
		}
	}
}

// WithTokens sets the token source used for new locks.
func WithTokens(src TokenSource) Option {
	return func(c *Coordinator) {
		if src != nil {
			c.tokens = src
		}
	}
}

// WithNotifier sets the notifier receiving lifecycle events.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithTracing enables OpenTelemetry spans on Acquire, Release and Extend.
func WithTracing() Option {
	return func(c *Coordinator) {
		c.traceEnabled = true
	}
}

// New returns a Coordinator over the given stores. The quorum is fixed at
// construction as floor(N/2)+1. A single store is allowed but degrades to
// plain mutual exclusion with no fault tolerance.
func New(stores []store.Store, opts ...Option) (*Coordinator, error) {
	if len(stores) == 0 {
		return nil, ErrNoStores
	}
	c := &Coordinator{
		stores:       append([]store.Store(nil), stores...),
		quorum:       len(stores)/2 + 1,
		retries:      DefaultRetries,
		retryDelay:   DefaultRetryDelay,
		driftFactor:  DefaultDriftFactor,
		safetyMargin: DefaultSafetyMargin,
		tokens:       RandomTokens{},
		notifier:     notify.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Quorum returns the number of stores that must agree for an operation to be
// authoritative.
func (c *Coordinator) Quorum() int { return c.quorum }

// Stores returns the number of configured backing stores.
func (c *Coordinator) Stores() int { return len(c.stores) }

// Close tears down every backing store handle and returns the first error
// encountered.
func (c *Coordinator) Close() error {
	var firstErr error
	for _, s := range c.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type vote struct {
	store store.Store
	ok    bool
	err   error
}

// fanOut runs fn against every store concurrently and joins all results. Every
// store is always contacted: there is no early exit on reaching quorum, so
// store-side state stays converged. A store's failure never cancels the other
// calls; it comes back as a vote carrying the error.
func (c *Coordinator) fanOut(ctx context.Context, fn func(store.Store) (bool, error)) []vote {
	votes := make([]vote, len(c.stores))
	var wg sync.WaitGroup
	wg.Add(len(c.stores))
	for i, s := range c.stores {
		go func(i int, s store.Store) {
			defer wg.Done()
			ok, err := fn(s)
			votes[i] = vote{store: s, ok: ok, err: err}
		}(i, s)
	}
	wg.Wait()
	return votes
}

// drift is the slice of the TTL that cannot be trusted due to clock skew
// between stores, plus the fixed safety margin.
func (c *Coordinator) drift(ttl time.Duration) time.Duration {
	return time.Duration(math.Ceil(c.driftFactor*float64(ttl))) + c.safetyMargin
}

// Acquire establishes a quorum of store-side entries for resource, all bearing
// the same freshly generated token, each expiring after ttl. It returns the
// token proving ownership. Attempts are sequential: each fan-out completes,
// including rollback on failure, before the retry delay starts.
//
// A store that errors during the fan-out counts as a non-vote and is reported
// through the notifier; the attempt proceeds on the votes it did get.
func (c *Coordinator) Acquire(ctx context.Context, resource string, ttl time.Duration) (string, error) {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Lock.Acquire",
			trace.WithAttributes(attribute.String("quorlock.resource", resource)))
		defer span.End()
	}

	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		// A fresh token every attempt: a previous attempt's token may have
		// partially landed and must never be mistaken for ownership.
		token, err := c.tokens.Token()
		if err != nil {
			return "", fmt.Errorf("quorlock: generating token: %w", err)
		}

		start := time.Now()
		votes := c.fanOut(ctx, func(s store.Store) (bool, error) {
			return s.SetIfAbsent(ctx, resource, token, ttl)
		})

		granted := 0
		for _, v := range votes {
			if v.err != nil {
				c.notifier.Notify(ctx, notify.Event{
					Type:     notify.TypeLockError,
					Resource: resource,
					Token:    token,
					Store:    v.store.Name(),
					Err:      v.err,
				})
				continue
			}
			if v.ok {
				granted++
			}
		}

		if granted >= c.quorum {
			elapsed := time.Since(start)
			validity := ttl - elapsed - c.drift(ttl)
			if validity > 0 {
				c.notifier.Notify(ctx, notify.Event{
					Type:     notify.TypeAcquired,
					Resource: resource,
					Token:    token,
					Validity: validity,
				})
				return token, nil
			}

			// The quorum round consumed the lock's useful life. A slow round
			// will likely stay slow, so this is terminal rather than retried.
			c.rollback(ctx, resource, token)
			c.notifier.Notify(ctx, notify.Event{
				Type:     notify.TypeFatalError,
				Op:       "acquire",
				Resource: resource,
				Token:    token,
				Err:      ErrValidityExpired,
			})
			return "", fmt.Errorf("%w: quorum on %q took %v of a %v ttl",
				ErrValidityExpired, resource, elapsed, ttl)
		}

		// Partial entries must not linger and block the next attempt.
		c.rollback(ctx, resource, token)
		c.notifier.Notify(ctx, notify.Event{
			Type:     notify.TypeAttemptFailed,
			Resource: resource,
			Token:    token,
			Attempt:  attempt,
		})
	}

	c.notifier.Notify(ctx, notify.Event{
		Type:     notify.TypeFatalError,
		Op:       "acquire",
		Resource: resource,
		Err:      ErrTooManyRetries,
	})
	return "", fmt.Errorf("%w: %q after %d attempts", ErrTooManyRetries, resource, c.retries)
}

// rollback removes token's entries from every store, best effort. A store that
// errors is reported and does not stop rollback of the remaining stores.
func (c *Coordinator) rollback(ctx context.Context, resource, token string) {
	votes := c.fanOut(ctx, func(s store.Store) (bool, error) {
		return s.CompareAndDelete(ctx, resource, token)
	})
	for _, v := range votes {
		if v.err != nil {
			c.notifier.Notify(ctx, notify.Event{
				Type:     notify.TypeUnlockError,
				Resource: resource,
				Token:    token,
				Store:    v.store.Name(),
				Err:      v.err,
			})
		}
	}
}

// Release deletes resource's entry from every store whose stored token matches
// the supplied one. It is best effort and idempotent: per-store failures are
// reported but never returned, releasing an unheld or expired lock is a no-op,
// and the released event is emitted unconditionally.
func (c *Coordinator) Release(ctx context.Context, resource, token string) error {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Lock.Release",
			trace.WithAttributes(attribute.String("quorlock.resource", resource)))
		defer span.End()
	}

	c.rollback(ctx, resource, token)
	c.notifier.Notify(ctx, notify.Event{
		Type:     notify.TypeReleased,
		Resource: resource,
		Token:    token,
	})
	return nil
}

// Extend resets the expiry of resource's entry to now+ttl on every store whose
// stored token matches. Unlike Release it must reflect whether the majority
// actually renewed: if fewer than quorum stores confirm, ErrExtendFailed is
// returned and the caller must treat its critical section as compromised.
// Stores that did renew keep the longer expiry.
func (c *Coordinator) Extend(ctx context.Context, resource, token string, ttl time.Duration) error {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Lock.Extend",
			trace.WithAttributes(attribute.String("quorlock.resource", resource)))
		defer span.End()
	}

	votes := c.fanOut(ctx, func(s store.Store) (bool, error) {
		return s.CompareAndRenew(ctx, resource, token, ttl)
	})

	renewed := 0
	for _, v := range votes {
		if v.err != nil {
			c.notifier.Notify(ctx, notify.Event{
				Type:     notify.TypeExtendError,
				Resource: resource,
				Token:    token,
				Store:    v.store.Name(),
				Err:      v.err,
			})
			continue
		}
		if v.ok {
			renewed++
		}
	}

	if renewed >= c.quorum {
		c.notifier.Notify(ctx, notify.Event{
			Type:     notify.TypeExtended,
			Resource: resource,
			Token:    token,
			TTL:      ttl,
		})
		return nil
	}

	c.notifier.Notify(ctx, notify.Event{
		Type:     notify.TypeFatalError,
		Op:       "extend",
		Resource: resource,
		Token:    token,
		Err:      ErrExtendFailed,
	})
	return fmt.Errorf("%w: %d/%d stores renewed %q", ErrExtendFailed, renewed, len(c.stores), resource)
}
