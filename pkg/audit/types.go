package audit

import "time"

// Decision kinds recorded in the audit trail.
const (
	KindGrant             = "grant"
	KindDenial            = "denial"
	KindForcedFallback    = "forced_fallback"
	KindFailover          = "failover"
	KindCircuitTransition = "circuit_transition"
	KindStaleReclaim      = "stale_reclaim"
)

// Decision is one admission or failover decision appended to the trail.
type Decision struct {
	// ID is the unique record identifier.
	ID string `json:"id"`

	// At is when the decision was made.
	At time.Time `json:"at"`

	// Kind is one of the Kind* constants.
	Kind string `json:"kind"`

	// CallerID identifies the requesting caller, when known.
	CallerID string `json:"caller_id,omitempty"`

	// Role is the caller's agent role, when known.
	Role string `json:"role,omitempty"`

	// Purpose is the workload purpose, when known.
	Purpose string `json:"purpose,omitempty"`

	// Provider is the provider the decision concerns.
	Provider string `json:"provider,omitempty"`

	// SlotID is the slot issued or released, when applicable.
	SlotID string `json:"slot_id,omitempty"`

	// Reason is the human-readable decision reason.
	Reason string `json:"reason,omitempty"`

	// EstimatedTokens is the request's declared token estimate.
	EstimatedTokens int64 `json:"estimated_tokens,omitempty"`
}

// Filter selects decisions for a Query. Zero fields match everything.
type Filter struct {
	// Kind restricts results to one decision kind.
	Kind string

	// Provider restricts results to one provider.
	Provider string

	// From and To bound the decision time, inclusive.
	From time.Time
	To   time.Time

	// Limit caps the number of returned records. Zero means no cap.
	Limit int
}
