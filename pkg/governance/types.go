package governance

import (
	"time"

	"mercator-hq/warden/pkg/breaker"
	"mercator-hq/warden/pkg/failover"
	"mercator-hq/warden/pkg/governor"
	"mercator-hq/warden/pkg/ratelimit"
)

// AcquireRequest is the service-level admission request.
type AcquireRequest = governor.AcquireRequest

// Grant is the service-level admission result.
type Grant = governor.Grant

// ProviderStatus is one provider's governance state in a Snapshot.
type ProviderStatus struct {
	// ID is the provider identifier.
	ID string `json:"id"`

	// Tier is the provider's capability tier.
	Tier int `json:"tier"`

	// CircuitState is the current circuit state name.
	CircuitState string `json:"circuit_state"`

	// Circuit is the full circuit record.
	Circuit breaker.Record `json:"circuit"`

	// Budget is the current budget snapshot.
	Budget ratelimit.BudgetSnapshot `json:"budget"`

	// RateLimited indicates an active advisory rate-limit mark.
	RateLimited bool `json:"rate_limited"`
}

// Snapshot is a point-in-time view of the whole governance layer,
// served to dashboards. It is read-only; nothing consumes it back.
type Snapshot struct {
	// TakenAt is when the snapshot was assembled.
	TakenAt time.Time `json:"taken_at"`

	// Providers lists per-provider circuit and budget state, sorted by ID.
	Providers []ProviderStatus `json:"providers"`

	// Roles lists per-role slot occupancy.
	Roles []governor.RoleOccupancy `json:"roles"`

	// ActiveSlots lists currently held slots oldest first.
	ActiveSlots []governor.Slot `json:"active_slots"`

	// RateLimitedMarks lists active advisory cooldown marks.
	RateLimitedMarks []failover.Mark `json:"rate_limited_marks"`

	// QueueDepth is the pending request queue length.
	QueueDepth int `json:"queue_depth"`

	// AggregateEstimatedTokens is the summed estimate of active slots.
	AggregateEstimatedTokens int64 `json:"aggregate_estimated_tokens"`
}
