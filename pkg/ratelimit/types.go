package ratelimit

import "time"

// Config contains rate limiter policy settings shared by all providers.
// Per-provider quotas come from the provider catalog.
type Config struct {
	// ShortWait is the longest wait the limiter proposes instead of a
	// failover suggestion when a window is exhausted.
	ShortWait time.Duration

	// BackoffBase is the wait for the first consecutive rejection.
	BackoffBase time.Duration

	// BackoffMax caps the exponential rejection backoff.
	BackoffMax time.Duration

	// FailoverAfterRejections is how many consecutive rejections trigger a
	// failover suggestion in addition to backoff.
	FailoverAfterRejections int
}

// Decision is the result of a budget check.
type Decision struct {
	// Allowed indicates whether the estimated spend fits both windows.
	Allowed bool

	// Reason explains a rejection ("minute budget exhausted",
	// "daily budget exhausted").
	Reason string

	// RemainingMinute is the unspent 1-minute budget (before this request).
	RemainingMinute int64

	// RemainingDaily is the unspent 24-hour budget (before this request).
	RemainingDaily int64

	// Wait, when non-zero, is a short wait after which the window will have
	// rolled over and the request should fit.
	Wait time.Duration

	// FailoverSuggestion, when non-empty, names an equivalent-purpose
	// provider to divert to instead of waiting.
	FailoverSuggestion string
}

// RejectionAdvice is returned after an explicit provider-side rejection
// signal (e.g., an HTTP 429 observed by the transport).
type RejectionAdvice struct {
	// Wait is the computed exponential backoff with jitter.
	Wait time.Duration

	// FailoverSuggestion, when non-empty, names a provider to divert to.
	// Set after the configured number of consecutive rejections.
	FailoverSuggestion string
}

// BudgetSnapshot is a point-in-time view of one provider's budget for
// introspection. Counters are as of the snapshot; windows may have rolled
// over by the time the snapshot is read.
type BudgetSnapshot struct {
	Provider              string    `json:"provider"`
	TokensPerMinute       int64     `json:"tokens_per_minute"`
	TokensPerDay          int64     `json:"tokens_per_day"`
	UsedThisMinute        int64     `json:"used_this_minute"`
	UsedToday             int64     `json:"used_today"`
	RemainingMinute       int64     `json:"remaining_minute"`
	RemainingDaily        int64     `json:"remaining_daily"`
	MinuteResetAt         time.Time `json:"minute_reset_at"`
	DayResetAt            time.Time `json:"day_reset_at"`
	ConsecutiveRejections int       `json:"consecutive_rejections"`
}

// FailoverAdvisor supplies failover suggestions when a budget is exhausted.
// The resolver implements this; the limiter stays free of chain knowledge.
type FailoverAdvisor interface {
	// SuggestFailover returns an available alternative for the provider, or
	// ok=false when none exists.
	SuggestFailover(provider string) (alternative string, ok bool)
}
