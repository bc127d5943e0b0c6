package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestRedisSetIfAbsent(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "k", "a", time.Second)
	if err != nil || !ok {
		t.Fatalf("first set: ok %v err %v", ok, err)
	}
	ok, err = s.SetIfAbsent(ctx, "k", "b", time.Second)
	if err != nil || ok {
		t.Fatalf("expected live entry to survive, ok %v err %v", ok, err)
	}
}

func TestRedisTTLExpires(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "k", "a", 100*time.Millisecond); !ok {
		t.Fatal("first set should succeed")
	}
	mr.FastForward(200 * time.Millisecond)
	if ok, err := s.SetIfAbsent(ctx, "k", "b", time.Second); err != nil || !ok {
		t.Fatalf("entry should have expired, ok %v err %v", ok, err)
	}
}

func TestRedisCompareAndDelete(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()
	_, _ = s.SetIfAbsent(ctx, "k", "a", time.Minute)

	if ok, err := s.CompareAndDelete(ctx, "k", "wrong"); err != nil || ok {
		t.Fatalf("non-matching delete must be a no-op, ok %v err %v", ok, err)
	}
	if ok, err := s.CompareAndDelete(ctx, "k", "a"); err != nil || !ok {
		t.Fatalf("matching delete: ok %v err %v", ok, err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Minute); !ok {
		t.Fatal("key should be free after matching delete")
	}
}

func TestRedisCompareAndDeleteMissingKey(t *testing.T) {
	s, _ := newRedisStore(t)
	if ok, err := s.CompareAndDelete(context.Background(), "absent", "a"); err != nil || ok {
		t.Fatalf("delete of missing key: ok %v err %v", ok, err)
	}
}

func TestRedisCompareAndRenew(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	_, _ = s.SetIfAbsent(ctx, "k", "a", 100*time.Millisecond)

	if ok, err := s.CompareAndRenew(ctx, "k", "wrong", time.Minute); err != nil || ok {
		t.Fatalf("non-matching renew must be a no-op, ok %v err %v", ok, err)
	}
	if ok, err := s.CompareAndRenew(ctx, "k", "a", time.Minute); err != nil || !ok {
		t.Fatalf("matching renew: ok %v err %v", ok, err)
	}

	mr.FastForward(200 * time.Millisecond)
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Minute); ok {
		t.Fatal("renewed entry should still be live")
	}
}

func TestRedisName(t *testing.T) {
	s, mr := newRedisStore(t)
	if s.Name() != mr.Addr() {
		t.Fatalf("name %q, want %q", s.Name(), mr.Addr())
	}
}

func TestRedisCloseIdempotent(t *testing.T) {
	s, _ := newRedisStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestRedisUnreachable(t *testing.T) {
	s := NewRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := s.SetIfAbsent(ctx, "k", "a", time.Second); err == nil {
		t.Fatal("expected error from unreachable store")
	}
}
