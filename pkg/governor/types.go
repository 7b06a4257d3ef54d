package governor

import (
	"errors"
	"time"
)

// ErrUnknownRole is returned when an acquire references a role with no
// configuration. This is a programming or configuration error.
var ErrUnknownRole = errors.New("unknown role")

// Config contains slot governor settings.
type Config struct {
	// StaleSlotTimeout is the age after which an unreleased slot is
	// reclaimed.
	StaleSlotTimeout time.Duration

	// GrantCooldown is the minimum interval between successive grants.
	GrantCooldown time.Duration

	// GlobalTokenCeiling caps aggregate estimated tokens across all active
	// slots. Zero disables the ceiling.
	GlobalTokenCeiling int64

	// AcquireTimeout bounds how long AcquireSlot may spend waiting
	// (cooldowns and short budget waits included).
	AcquireTimeout time.Duration
}

// RoleLimits contains per-role admission settings.
type RoleLimits struct {
	// MaxConcurrent is the role's concurrency ceiling for full slots.
	MaxConcurrent int

	// Purpose is the workload purpose the role declares.
	Purpose string

	// DefaultProvider is assigned on a normal grant.
	DefaultProvider string

	// FallbackProvider is assigned on a forced-fallback grant.
	FallbackProvider string

	// AllowFallback controls whether the role may be demoted to the
	// fallback provider instead of being denied.
	AllowFallback bool
}

// Slot is a concurrency admission ticket held by one active caller.
type Slot struct {
	SlotID           string    `json:"slot_id"`
	CallerID         string    `json:"caller_id"`
	Role             string    `json:"role"`
	AssignedProvider string    `json:"assigned_provider"`
	EstimatedTokens  int64     `json:"estimated_tokens"`
	StartedAt        time.Time `json:"started_at"`
	Fallback         bool      `json:"fallback"`
}

// AcquireRequest describes one caller's admission request.
type AcquireRequest struct {
	// CallerID identifies the requesting caller (for introspection only;
	// uniqueness is not enforced).
	CallerID string

	// Role is the caller's agent role (e.g., "coder", "reviewer").
	Role string

	// EstimatedTokens is the caller's estimate of the tokens this request
	// will consume.
	EstimatedTokens int64
}

// Grant is the result of an admission decision.
type Grant struct {
	// Granted indicates whether a slot was issued (normal or fallback).
	Granted bool

	// SlotID identifies the issued slot; empty when denied.
	SlotID string

	// Provider is the assigned provider: the role's default (or a budget
	// failover substitute) on a normal grant, the role's fallback provider
	// on a forced-fallback grant.
	Provider string

	// ForcedFallback indicates the caller was demoted to degraded/cheap
	// fallback mode instead of receiving a full slot.
	ForcedFallback bool

	// Reason explains the decision ("granted", "role ceiling reached",
	// "budget exhausted", ...).
	Reason string
}

// RoleOccupancy reports per-role slot usage for introspection.
type RoleOccupancy struct {
	Role     string `json:"role"`
	Active   int    `json:"active"`
	Fallback int    `json:"fallback"`
	Ceiling  int    `json:"ceiling"`
}
