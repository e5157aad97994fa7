package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is the end of the current window.
	Reset time.Time
}

// Window is the stored per-tenant counter record.
type Window struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"window_start"`
}

// WindowStore is the backing store for window records. Implementations hold
// no other state; the limiter owns all window arithmetic.
type WindowStore interface {
	// Get returns the record for key, or nil if none exists.
	Get(ctx context.Context, key string) (*Window, error)

	// Put writes the record for key with the given TTL.
	Put(ctx context.Context, key string, w *Window, ttl time.Duration) error
}

type Limiter interface {
	// Check counts one request against the tenant's budget and reports
	// whether it may proceed.
	Check(ctx context.Context, tenantID string, limit int) (Decision, error)
}
