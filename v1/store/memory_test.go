package store

import (
	"context"
	"testing"
	"time"
)

func TestInMemorySetIfAbsent(t *testing.T) {
	s := NewInMemory("m")
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

func TestInMemoryTTLExpires(t *testing.T) {
	s := NewInMemory("m")
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "k", "a", 10*time.Millisecond); !ok {
		t.Fatal("first set should succeed")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, err := s.SetIfAbsent(ctx, "k", "b", time.Second); err != nil || !ok {
		t.Fatalf("entry should have expired, ok %v err %v", ok, err)
	}
}

func TestInMemoryCompareAndDelete(t *testing.T) {
	s := NewInMemory("m")
	ctx := context.Background()
	_, _ = s.SetIfAbsent(ctx, "k", "a", time.Second)

	ok, err := s.CompareAndDelete(ctx, "k", "wrong")
	if err != nil || ok {
		t.Fatalf("non-matching delete must be a no-op, ok %v err %v", ok, err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Second); ok {
		t.Fatal("entry should still be held after non-matching delete")
	}

	ok, err = s.CompareAndDelete(ctx, "k", "a")
	if err != nil || !ok {
		t.Fatalf("matching delete: ok %v err %v", ok, err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Second); !ok {
		t.Fatal("key should be free after matching delete")
	}
}

func TestInMemoryCompareAndRenew(t *testing.T) {
	s := NewInMemory("m")
	ctx := context.Background()
	_, _ = s.SetIfAbsent(ctx, "k", "a", 30*time.Millisecond)

	if ok, err := s.CompareAndRenew(ctx, "k", "wrong", time.Second); err != nil || ok {
		t.Fatalf("non-matching renew must be a no-op, ok %v err %v", ok, err)
	}
	if ok, err := s.CompareAndRenew(ctx, "k", "a", 200*time.Millisecond); err != nil || !ok {
		t.Fatalf("matching renew: ok %v err %v", ok, err)
	}

	// Past the original expiry but inside the renewed one.
	time.Sleep(60 * time.Millisecond)
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Second); ok {
		t.Fatal("renewed entry should still be live")
	}
}

func TestInMemoryStaleTimerDoesNotClobber(t *testing.T) {
	s := NewInMemory("m")
	ctx := context.Background()

	_, _ = s.SetIfAbsent(ctx, "k", "a", 20*time.Millisecond)
	if ok, _ := s.CompareAndDelete(ctx, "k", "a"); !ok {
		t.Fatal("delete should succeed")
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Second); !ok {
		t.Fatal("re-create should succeed")
	}
	// The first entry's timer would fire around now; the new entry must survive.
	time.Sleep(40 * time.Millisecond)
	if ok, _ := s.SetIfAbsent(ctx, "k", "c", time.Second); ok {
		t.Fatal("stale timer removed the new entry")
	}
}

func TestInMemoryStaleTimerDoesNotClobberRenewedEntry(t *testing.T) {
	s := NewInMemory("m")
	ctx := context.Background()

	_, _ = s.SetIfAbsent(ctx, "k", "a", time.Minute)
	s.mu.Lock()
	old := s.entries["k"]
	old.timer.Stop()
	s.mu.Unlock()

	if ok, _ := s.CompareAndRenew(ctx, "k", "a", time.Minute); !ok {
		t.Fatal("renew should succeed")
	}
	// The original TTL timer fires late, after the renew went through.
	s.expire("k", old)

	if ok, _ := s.SetIfAbsent(ctx, "k", "b", time.Minute); ok {
		t.Fatal("stale timer removed the renewed entry")
	}
}

func TestInMemoryContextCanceled(t *testing.T) {
	s := NewInMemory("m")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SetIfAbsent(ctx, "k", "a", time.Second); err == nil {
		t.Fatal("expected context error")
	}
}

func TestInMemoryCloseIdempotent(t *testing.T) {
	s := NewInMemory("m")
	_, _ = s.SetIfAbsent(context.Background(), "k", "a", time.Minute)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
