package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by a CircuitBreaker store while its circuit is
// open. The coordinator treats it like any other store failure: a non-vote.
var ErrCircuitOpen = errors.New("quorlock: circuit breaker is open")

type cbState int

const (
	cbClosed cbState = iota
	cbOpen
	cbHalfOpen
)

// CircuitBreaker decorates a Store with circuit breaker logic so an
// unreachable store fails fast instead of holding up every quorum round for
// its full dial timeout.
type CircuitBreaker struct {
	store Store

	mu        sync.Mutex
	state     cbState
	failures  int
	threshold int
	timeout   time.Duration
	lastFail  time.Time
}

// NewCircuitBreaker returns a new CircuitBreaker around s. The circuit opens
// after threshold consecutive failures and allows a probe after timeout.
func NewCircuitBreaker(s Store, threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		store:     s,
		threshold: threshold,
		timeout:   timeout,
		state:     cbClosed,
	}
}

// allow checks if a request should pass through, handling the transition from
// open to half-open once the timeout elapses.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case cbClosed:
		return true
	case cbOpen:
		if time.Since(cb.lastFail) > cb.timeout {
			cb.state = cbHalfOpen
			return true
		}
		return false
	case cbHalfOpen:
		// A probe is already in flight; hold further requests until it reports.
		return false
	}
	return false
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case cbHalfOpen:
		cb.state = cbClosed
		cb.failures = 0
	case cbClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFail = time.Now()
	cb.failures++
	if cb.state == cbClosed && cb.failures >= cb.threshold {
		cb.state = cbOpen
	} else if cb.state == cbHalfOpen {
		cb.state = cbOpen
	}
}

func (cb *CircuitBreaker) observe(ok bool, err error) (bool, error) {
	if err != nil {
		cb.onFailure()
		return ok, err
	}
	cb.onSuccess()
	return ok, nil
}

// SetIfAbsent implements Store.SetIfAbsent with circuit breaker logic.
func (cb *CircuitBreaker) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if !cb.allow() {
		return false, ErrCircuitOpen
	}
	return cb.observe(cb.store.SetIfAbsent(ctx, key, value, ttl))
}

// CompareAndDelete implements Store.CompareAndDelete with circuit breaker logic.
func (cb *CircuitBreaker) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if !cb.allow() {
		return false, ErrCircuitOpen
	}
	return cb.observe(cb.store.CompareAndDelete(ctx, key, value))
}

// CompareAndRenew implements Store.CompareAndRenew with circuit breaker logic.
func (cb *CircuitBreaker) CompareAndRenew(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if !cb.allow() {
		return false, ErrCircuitOpen
	}
	return cb.observe(cb.store.CompareAndRenew(ctx, key, value, ttl))
}

// Name implements Store.Name.
func (cb *CircuitBreaker) Name() string { return cb.store.Name() }

// Close implements Store.Close.
func (cb *CircuitBreaker) Close() error { return cb.store.Close() }
