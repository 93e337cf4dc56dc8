package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{Prefix: "t", MaxLoginAttempts: 3, Window: time.Minute})

	for i := 1; i <= 2; i++ {
		if err := l.RecordFailure(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if err := l.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: expected allowed, got %v", i, err)
		}
	}
	if err := l.RecordFailure(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the last attempt, got %v", err)
	}
	if err := l.CheckLogin(ctx, "ALICE", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected identifier match to ignore case, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("expected other identifiers unaffected, got %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{Prefix: "t", MaxLoginAttempts: 1, Window: time.Minute})

	_ = l.RecordFailure(ctx, "alice", "")
	if ttl := mr.TTL("t:login:u:alice"); ttl != time.Minute {
		t.Fatalf("expected window TTL, got %v", ttl)
	}
	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected budget restored after window, got %v", err)
	}
}

func TestLimiterIPThrottle(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 2, EnableIPThrottle: true})

	_ = l.RecordFailure(ctx, "alice", "10.0.0.1")
	_ = l.RecordFailure(ctx, "bob", "10.0.0.1")
	if err := l.CheckLogin(ctx, "carol", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected address budget exhausted, got %v", err)
	}
	if err := l.CheckLogin(ctx, "carol", "10.0.0.2"); err != nil {
		t.Fatalf("expected other address allowed, got %v", err)
	}
}

func TestLimiterResetLogin(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 5})

	_ = l.RecordFailure(ctx, "alice", "")
	_ = l.RecordFailure(ctx, "alice", "")
	if n, _ := l.Attempts(ctx, "alice"); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
	if err := l.ResetLogin(ctx, "alice"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if n, _ := l.Attempts(ctx, "alice"); n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{})
	mr.Close()

	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
