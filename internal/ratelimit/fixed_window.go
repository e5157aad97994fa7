package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	windowSeconds = 60

	// ttlSlack keeps records alive slightly past the window end so a
	// clock-skewed reader never resurrects a half-expired window.
	ttlSlack = 10 * time.Second
)

// FixedWindowLimiter counts requests per tenant in fixed 60-second windows.
//
// The read-then-write sequence is intentionally not atomic: concurrent
// requests may both observe the same count and the window can briefly
// under-count. The system trades exact limiting for one round trip of
// latency; swap in a store with an atomic increment if that ever changes.
type FixedWindowLimiter struct {
	store WindowStore
	clock clockwork.Clock
}

func NewFixedWindow(store WindowStore) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store: store,
		clock: clockwork.NewRealClock(),
	}
}

// NewFixedWindowWithClock is used by tests to control window boundaries.
func NewFixedWindowWithClock(store WindowStore, clock clockwork.Clock) *FixedWindowLimiter {
	return &FixedWindowLimiter{store: store, clock: clock}
}

func (f *FixedWindowLimiter) Check(ctx context.Context, tenantID string, limit int) (Decision, error) {
	now := f.clock.Now().Unix()
	windowStart := now / windowSeconds * windowSeconds
	reset := time.Unix(windowStart+windowSeconds, 0)
	key := fmt.Sprintf("ratelimit:tenant:%s", tenantID)
	ttl := time.Duration(windowStart+windowSeconds-now)*time.Second + ttlSlack

	w, err := f.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if w == nil || w.WindowStart != windowStart {
		// First request of a fresh window.
		fresh := &Window{Count: 1, WindowStart: windowStart}
		if err := f.store.Put(ctx, key, fresh, ttl); err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true, Remaining: limit - 1, Reset: reset}, nil
	}

	if w.Count >= limit {
		return Decision{Allowed: false, Remaining: 0, Reset: reset}, nil
	}

	w.Count++
	if err := f.store.Put(ctx, key, w, ttl); err != nil {
		return Decision{}, err
	}

	remaining := limit - w.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Allowed: true, Remaining: remaining, Reset: reset}, nil
}
