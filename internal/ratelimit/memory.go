package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a sliding-window Limiter backed by an in-process
// map. It has no cross-instance coordination, so behind a load
// balancer each replica enforces its own window - the right tradeoff
// for throttling abusive clients on a single redirect node without
// taking a dependency on shared state for it.
type MemoryLimiter struct {
	cfg     Config
	buckets sync.Map // identifier -> *window

	done chan struct{}
	wg   sync.WaitGroup
}

// window tracks the recent request timestamps for one identifier.
type window struct {
	mu   sync.Mutex
	hits []time.Time
}

// NewMemoryLimiter starts a MemoryLimiter and its background sweeper.
// Callers must call Close when done to stop the sweeper goroutine.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	m := &MemoryLimiter{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sweepLoop()

	return m
}

// Allow records a hit for identifier and reports whether it falls
// within cfg.Requests over the trailing cfg.Window.
func (m *MemoryLimiter) Allow(ctx context.Context, identifier string) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now()
	cutoff := now.Add(-m.cfg.Window)

	val, _ := m.buckets.LoadOrStore(identifier, &window{
		hits: make([]time.Time, 0, m.cfg.Requests),
	})
	w := val.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.hits = dropBefore(w.hits, cutoff)

	count := len(w.hits)
	resetAfter := timeUntilOldestExpires(w.hits, m.cfg.Window, now)

	if count >= m.cfg.Requests {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: resetAfter,
			RetryAfter: resetAfter,
			Limit:      m.cfg.Requests,
		}, nil
	}

	w.hits = append(w.hits, now)

	return &Result{
		Allowed:    true,
		Remaining:  m.cfg.Requests - count - 1,
		ResetAfter: resetAfter,
		RetryAfter: 0,
		Limit:      m.cfg.Requests,
	}, nil
}

// Reset drops all recorded hits for identifier, as if it had never
// made a request.
func (m *MemoryLimiter) Reset(ctx context.Context, identifier string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.buckets.Delete(identifier)
	return nil
}

// Close stops the sweeper goroutine and waits for it to exit.
func (m *MemoryLimiter) Close() error {
	close(m.done)
	m.wg.Wait()
	return nil
}

// sweepLoop evicts expired buckets once per window so a limiter that
// has seen many distinct identifiers doesn't hold their state forever.
func (m *MemoryLimiter) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep removes any bucket whose hits have all aged out of the
// window, and prunes the stale hits from buckets that survive.
func (m *MemoryLimiter) sweep() {
	cutoff := time.Now().Add(-m.cfg.Window)

	m.buckets.Range(func(key, value interface{}) bool {
		w := value.(*window)
		w.mu.Lock()
		live := dropBefore(w.hits, cutoff)
		if len(live) == 0 {
			w.mu.Unlock()
			m.buckets.Delete(key)
			return true
		}
		w.hits = live
		w.mu.Unlock()
		return true
	})
}

// dropBefore returns the suffix of hits that occurred strictly after
// cutoff, preserving order.
func dropBefore(hits []time.Time, cutoff time.Time) []time.Time {
	live := make([]time.Time, 0, len(hits))
	for _, ts := range hits {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	return live
}

// timeUntilOldestExpires returns how long until the oldest entry in
// hits ages out of window, clamped to zero. It assumes hits is sorted
// ascending, which Allow and sweep both maintain by only appending.
func timeUntilOldestExpires(hits []time.Time, window time.Duration, now time.Time) time.Duration {
	if len(hits) == 0 {
		return 0
	}
	remaining := hits[0].Add(window).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
