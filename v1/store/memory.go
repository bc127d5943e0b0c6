package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value string
	timer *time.Timer
}

// InMemory implements Store using local memory with TTL timers. It behaves
// like a single key-value node and is mainly useful for tests, examples and
// single-process deployments.
type InMemory struct {
	mu      sync.Mutex
	name    string
	entries map[string]*entry
	closed  bool
}

// NewInMemory returns a new in-memory store with the given name.
func NewInMemory(name string) *InMemory {
	if name == "" {
		name = "memory"
	}
	return &InMemory{name: name, entries: make(map[string]*entry)}
}

// SetIfAbsent implements Store.SetIfAbsent.
func (s *InMemory) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	e := &entry{value: value}
	if ttl > 0 {
		e.timer = time.AfterFunc(ttl, func() {
			s.expire(key, e)
		})
	}
	s.entries[key] = e
	return true, nil
}

// expire removes the entry only if it is still the one the timer was armed
// for, so a delete-then-recreate cannot be clobbered by a stale timer.
func (s *InMemory) expire(key string, e *entry) {
	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && cur == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

// CompareAndDelete implements Store.CompareAndDelete.
func (s *InMemory) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.value != value {
		return false, nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, key)
	return true, nil
}

// CompareAndRenew implements Store.CompareAndRenew.
func (s *InMemory) CompareAndRenew(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.value != value {
		return false, nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	// Install a fresh entry: a timer that already fired for the old TTL and is
	// blocked on the mutex must not pass expire's identity check and delete
	// the renewed entry.
	fresh := &entry{value: e.value}
	if ttl > 0 {
		fresh.timer = time.AfterFunc(ttl, func() {
			s.expire(key, fresh)
		})
	}
	s.entries[key] = fresh
	return true, nil
}

// Name implements Store.Name.
func (s *InMemory) Name() string { return s.name }

// Close implements Store.Close. It stops all TTL timers and drops all entries.
func (s *InMemory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.entries = make(map[string]*entry)
	s.closed = true
	return nil
}
