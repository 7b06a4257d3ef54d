package governance

import (
	"errors"
	"fmt"
)

// Common governance errors that can be checked with errors.Is().
var (
	// ErrBudgetExceeded is returned when a provider's token budget cannot
	// cover the request. Recoverable via a short wait or failover.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrCircuitOpen is returned when a provider's circuit is rejecting
	// traffic. Recoverable via failover, never via immediate retry.
	ErrCircuitOpen = errors.New("provider circuit open")

	// ErrSlotUnavailable is returned when a role's concurrency ceiling is
	// reached and fallback is not permitted.
	ErrSlotUnavailable = errors.New("no concurrency slot available")

	// ErrChainExhausted is returned when every provider in every tier is
	// currently unusable. Terminal for the request.
	ErrChainExhausted = errors.New("failover chain exhausted")

	// ErrInvalidConfiguration is returned when an unknown provider, role,
	// or purpose is referenced. A programming error, never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// BudgetExceededError is returned when a provider's token budget cannot
// cover a request and no internal resolution was possible.
type BudgetExceededError struct {
	// Provider is the provider whose budget was exhausted.
	Provider string

	// Reason names the exhausted window ("minute budget exhausted",
	// "daily budget exhausted").
	Reason string
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("token budget exceeded for provider %q: %s", e.Provider, e.Reason)
}

// Is implements error matching for errors.Is().
func (e *BudgetExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// CircuitOpenError is returned when a provider's circuit gate rejected
// the request.
type CircuitOpenError struct {
	// Provider is the provider whose circuit is open.
	Provider string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for provider %q", e.Provider)
}

// Is implements error matching for errors.Is().
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// SlotUnavailableError is returned when admission was denied outright.
type SlotUnavailableError struct {
	// Role is the role whose ceiling was reached.
	Role string

	// Reason is the governor's denial reason.
	Reason string
}

// Error implements the error interface.
func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("no slot available for role %q: %s", e.Role, e.Reason)
}

// Is implements error matching for errors.Is().
func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// ChainExhaustedError is returned when no provider in any tier could
// serve the request.
type ChainExhaustedError struct {
	// Provider is the provider the failover started from.
	Provider string

	// Purpose is the workload purpose whose chain was walked.
	Purpose string
}

// Error implements the error interface.
func (e *ChainExhaustedError) Error() string {
	if e.Purpose == "" {
		return fmt.Sprintf("failover chain exhausted from provider %q", e.Provider)
	}
	return fmt.Sprintf("failover chain exhausted from provider %q for purpose %q", e.Provider, e.Purpose)
}

// Is implements error matching for errors.Is().
func (e *ChainExhaustedError) Is(target error) bool {
	return target == ErrChainExhausted
}

// InvalidConfigurationError is returned when a caller references an
// unknown provider, role, or purpose.
type InvalidConfigurationError struct {
	// Kind names what was unknown ("provider", "role", "purpose",
	// "strategy").
	Kind string

	// Value is the unknown identifier.
	Value string

	// Err is the underlying error, when one exists.
	Err error
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: unknown %s %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid configuration: unknown %s %q", e.Kind, e.Value)
}

// Is implements error matching for errors.Is().
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}
