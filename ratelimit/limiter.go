// Package ratelimit enforces per-credential, per-minute request ceilings
// using tumbling minute windows behind a pluggable counter store.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/speckit/gateway/credential"
)

// Window is the fixed counting interval.
const Window = time.Minute

// CounterStore is the capability the limiter depends on. The in-memory
// implementation serves tests and single-instance deployments; multi-instance
// deployments share counters through the Redis implementation.
type CounterStore interface {
	// Increment bumps the window counter for key, starting a fresh window
	// when none exists or the previous one has expired. Returns the count
	// after the increment and the window's reset time.
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)

	// Peek returns the current count and reset time without incrementing.
	// ok is false when no live window exists for key.
	Peek(ctx context.Context, key string) (count int, resetAt time.Time, ok bool, err error)
}

// Result is the outcome of a rate limit check. Header values are populated
// on every checked request, allowed or not.
type Result struct {
	// Allowed is false when this request pushed the count over the limit.
	Allowed bool

	// Limit is the tier's requests-per-minute ceiling.
	Limit int

	// Remaining is max(0, limit - count).
	Remaining int

	// ResetSeconds is the whole seconds until the window resets, rounded up.
	ResetSeconds int

	// ResetAt is when the current window resets.
	ResetAt time.Time
}

// Headers returns the rate-limit response headers for this result.
// Retry-After is present only when the request was rejected.
func (r Result) Headers() map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.Itoa(r.ResetSeconds),
	}
	if !r.Allowed {
		h["Retry-After"] = strconv.Itoa(r.ResetSeconds)
	}
	return h
}

// Limiter checks requests against tier quotas. Construction validates the
// quota table; an unknown tier at check time is a programming error and
// panics rather than failing the request open or closed silently.
type Limiter struct {
	counters CounterStore
	quotas   credential.Quotas
}

// NewLimiter creates a limiter from a validated quota table.
func NewLimiter(counters CounterStore, quotas credential.Quotas) (*Limiter, error) {
	if counters == nil {
		return nil, fmt.Errorf("ratelimit: counter store is required")
	}
	if err := quotas.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{counters: counters, quotas: quotas}, nil
}

// Check records one request for the credential and decides whether it is
// within quota. The decision and header values come from the same window
// observation, so headers are consistent even on the rejecting request.
func (l *Limiter) Check(ctx context.Context, credID string, tier credential.Tier) (Result, error) {
	limit, ok := l.quotas[tier]
	if !ok {
		panic(fmt.Sprintf("ratelimit: no quota configured for tier %q", tier))
	}

	count, resetAt, err := l.counters.Increment(ctx, credID, Window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: increment %s: %w", credID, err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:      count <= limit,
		Limit:        limit,
		Remaining:    remaining,
		ResetSeconds: resetSeconds(resetAt),
		ResetAt:      resetAt,
	}, nil
}

// Quota returns the configured ceiling for a tier.
func (l *Limiter) Quota(tier credential.Tier) int {
	limit, ok := l.quotas[tier]
	if !ok {
		panic(fmt.Sprintf("ratelimit: no quota configured for tier %q", tier))
	}
	return limit
}

// resetSeconds converts a reset time to whole seconds from now, rounded up,
// floored at 1 so Retry-After is always positive.
func resetSeconds(resetAt time.Time) int {
	d := time.Until(resetAt)
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
