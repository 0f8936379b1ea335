package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/speckit/gateway/credential"
)

func newLimiter(t *testing.T) *Limiter {
	t.Helper()
	l, err := NewLimiter(NewMemoryCounters(), credential.DefaultQuotas)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestNewLimiterValidatesQuotas(t *testing.T) {
	_, err := NewLimiter(NewMemoryCounters(), credential.Quotas{
		credential.TierFree: 60,
	})
	if err == nil {
		t.Fatal("incomplete quota table should fail construction")
	}

	if _, err := NewLimiter(nil, credential.DefaultQuotas); err == nil {
		t.Fatal("nil counter store should fail construction")
	}
}

func TestCheckWithinQuota(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	res, err := l.Check(ctx, "key_a", credential.TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res.Limit != 60 {
		t.Fatalf("expected limit 60, got %d", res.Limit)
	}
	if res.Remaining != 59 {
		t.Fatalf("expected remaining 59, got %d", res.Remaining)
	}
	if res.ResetSeconds < 1 || res.ResetSeconds > 60 {
		t.Fatalf("reset seconds out of range: %d", res.ResetSeconds)
	}
}

func TestCheckRemainingDecreasesToZeroThenRejects(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		res, err := l.Check(ctx, "key_free", credential.TierFree)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != 60-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 60-i, res.Remaining)
		}
	}

	// The 61st request pushes the count over the limit.
	res, err := l.Check(ctx, "key_free", credential.TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("61st request should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", res.Remaining)
	}
	if res.ResetSeconds < 1 || res.ResetSeconds > 60 {
		t.Fatalf("Retry-After out of range: %d", res.ResetSeconds)
	}
	if res.Headers()["Retry-After"] == "" {
		t.Fatal("rejected result must carry Retry-After")
	}
}

func TestCheckIsolatesCredentials(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		if _, err := l.Check(ctx, "key_busy", credential.TierFree); err != nil {
			t.Fatal(err)
		}
	}

	res, err := l.Check(ctx, "key_quiet", credential.TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("a different credential must have its own window")
	}
	if res.Remaining != 59 {
		t.Fatalf("expected remaining 59, got %d", res.Remaining)
	}
}

func TestCheckUnknownTierPanics(t *testing.T) {
	l := newLimiter(t)

	defer func() {
		if recover() == nil {
			t.Fatal("unknown tier should panic")
		}
	}()
	l.Check(context.Background(), "key_x", credential.Tier(99)) //nolint:errcheck
}

func TestHeadersAllowed(t *testing.T) {
	res := Result{Allowed: true, Limit: 60, Remaining: 12, ResetSeconds: 31}
	h := res.Headers()

	if h["X-RateLimit-Limit"] != "60" || h["X-RateLimit-Remaining"] != "12" || h["X-RateLimit-Reset"] != "31" {
		t.Fatalf("unexpected headers: %v", h)
	}
	if _, ok := h["Retry-After"]; ok {
		t.Fatal("allowed result must not carry Retry-After")
	}
}

func TestMemoryCountersWindowRollover(t *testing.T) {
	m := NewMemoryCounters()
	ctx := context.Background()

	count, _, err := m.Increment(ctx, "k", 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}

	if count, _, err = m.Increment(ctx, "k", 30*time.Millisecond); err != nil || count != 2 {
		t.Fatalf("expected 2, got %d (%v)", count, err)
	}

	time.Sleep(40 * time.Millisecond)

	// Window expired: replaced, not incremented.
	count, _, err = m.Increment(ctx, "k", 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", count)
	}
}

func TestMemoryCountersPeek(t *testing.T) {
	m := NewMemoryCounters()
	ctx := context.Background()

	if _, _, ok, _ := m.Peek(ctx, "absent"); ok {
		t.Fatal("peek of absent key should report ok=false")
	}

	m.Increment(ctx, "k", time.Minute) //nolint:errcheck
	count, _, ok, err := m.Peek(ctx, "k")
	if err != nil || !ok || count != 1 {
		t.Fatalf("peek: count=%d ok=%v err=%v", count, ok, err)
	}
}

func TestMemoryCountersSweep(t *testing.T) {
	m := NewMemoryCounters()
	ctx := context.Background()

	m.Increment(ctx, "stale", 10*time.Millisecond) //nolint:errcheck
	m.Increment(ctx, "live", time.Minute)          //nolint:errcheck

	time.Sleep(20 * time.Millisecond)

	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live window, got %d", m.Len())
	}
}

func TestMemoryCountersConcurrentAccess(t *testing.T) {
	m := NewMemoryCounters()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Increment(ctx, "shared", time.Minute) //nolint:errcheck
		}()
	}
	wg.Wait()

	count, _, ok, err := m.Peek(ctx, "shared")
	if err != nil || !ok {
		t.Fatalf("peek failed: ok=%v err=%v", ok, err)
	}
	if count != 200 {
		t.Fatalf("expected 200, got %d", count)
	}
}
