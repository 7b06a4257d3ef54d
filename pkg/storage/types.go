package storage

import (
	"context"
	"time"
)

// Backend defines the interface for usage journal persistence.
// Implementations must be thread-safe and support concurrent access.
//
// The journal is observational: budget state lives in memory and is
// never restored from the journal on restart. Backends only need to
// append snapshots durably enough for operator inspection.
type Backend interface {
	// Append persists one batch of usage entries taken at the same
	// instant. An empty batch is a no-op.
	Append(ctx context.Context, entries []Entry) error

	// Query returns entries for a provider within [from, to], oldest
	// first. An empty provider matches all providers.
	Query(ctx context.Context, provider string, from, to time.Time) ([]Entry, error)

	// Cleanup removes entries taken before the given time.
	// Returns the number of entries deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the backend.
	// The backend should not be used after calling Close.
	Close() error
}

// Entry is one provider's budget usage at a single journal snapshot.
type Entry struct {
	// Provider is the provider identifier.
	Provider string `json:"provider"`

	// TakenAt is when the snapshot was taken.
	TakenAt time.Time `json:"taken_at"`

	// UsedThisMinute is the token spend in the current minute window.
	UsedThisMinute int64 `json:"used_this_minute"`

	// UsedToday is the token spend in the current day window.
	UsedToday int64 `json:"used_today"`

	// RemainingMinute is the unspent minute budget.
	RemainingMinute int64 `json:"remaining_minute"`

	// RemainingDaily is the unspent daily budget.
	RemainingDaily int64 `json:"remaining_daily"`

	// ConsecutiveRejections is the provider's rejection streak at
	// snapshot time.
	ConsecutiveRejections int `json:"consecutive_rejections"`
}
