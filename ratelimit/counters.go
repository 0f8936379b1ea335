package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MinSweepInterval bounds how often the background cleanup may run.
const MinSweepInterval = 5 * time.Minute

// Sweeper is implemented by counter stores that need periodic cleanup of
// expired windows. Stores with server-side expiry (Redis) don't.
type Sweeper interface {
	SweepEvery(ctx context.Context, interval time.Duration)
}

// MemoryCounters is the in-process CounterStore: a map of tumbling windows
// keyed by credential ID. Updates to one key never block another beyond the
// shared map lock, which is held only for the point update.
type MemoryCounters struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryCounters creates an empty in-memory counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{
		windows: make(map[string]*window),
	}
}

// Increment implements CounterStore. A window whose resetAt has passed is
// replaced, never incremented.
func (m *MemoryCounters) Increment(_ context.Context, key string, windowDur time.Duration) (int, time.Time, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowDur)}
		m.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt, nil
}

// Peek implements CounterStore.
func (m *MemoryCounters) Peek(_ context.Context, key string) (int, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !time.Now().Before(w.resetAt) {
		return 0, time.Time{}, false, nil
	}
	return w.count, w.resetAt, true, nil
}

// Sweep discards windows whose resetAt has already passed and reports how
// many were removed.
func (m *MemoryCounters) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// SweepEvery runs Sweep on a ticker until the context is cancelled. The
// interval is floored at MinSweepInterval. Cleanup runs off the request path.
func (m *MemoryCounters) SweepEvery(ctx context.Context, interval time.Duration) {
	if interval < MinSweepInterval {
		interval = MinSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of live windows. Used by tests and sweep metrics.
func (m *MemoryCounters) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
