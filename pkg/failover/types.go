package failover

import (
	"errors"
	"time"
)

// ErrChainExhausted is returned when every known provider is currently
// unavailable. This is terminal for the request: there is nowhere left to
// divert it.
var ErrChainExhausted = errors.New("failover chain exhausted: no provider available")

// ErrUnknownProvider is returned when a resolve call references a provider
// that does not exist in the catalog. This is a programming or configuration
// error, not a runtime condition.
var ErrUnknownProvider = errors.New("unknown provider")

// CircuitGate reports whether a provider's circuit currently rejects
// traffic. The breaker manager implements this.
type CircuitGate interface {
	IsOpen(provider string) bool
}

// Mark records an advisory rate-limited cooldown for a provider. The chain
// definitions themselves are never modified; marked providers are filtered
// at lookup time and become visible again the moment Until passes.
type Mark struct {
	Provider string    `json:"provider"`
	Until    time.Time `json:"until"`
	MarkedAt time.Time `json:"marked_at"`
}
