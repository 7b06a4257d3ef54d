package breaker

import "time"

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed allows requests to pass through normally.
	StateClosed State = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen admits a bounded number of probe requests.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so states render as names in
// JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config contains circuit breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// that closes the circuit.
	SuccessThreshold int

	// RecoveryTimeout is how long an open circuit waits before admitting
	// half-open probes.
	RecoveryTimeout time.Duration

	// MaxHalfOpenProbes is the number of concurrent probes admitted while
	// half-open.
	MaxHalfOpenProbes int

	// FailureRateThreshold opens the circuit when the overall failure rate
	// reaches this fraction, once MinRequestsForRate requests have been
	// observed.
	FailureRateThreshold float64

	// MinRequestsForRate is the minimum observed request count before the
	// failure rate check applies.
	MinRequestsForRate int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:     5,
		SuccessThreshold:     2,
		RecoveryTimeout:      30 * time.Second,
		MaxHalfOpenProbes:    1,
		FailureRateThreshold: 0.5,
		MinRequestsForRate:   10,
	}
}

// Record is a point-in-time view of one breaker for introspection.
type Record struct {
	Provider             string    `json:"provider"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	TotalRequests        int64     `json:"total_requests"`
	TotalSuccesses       int64     `json:"total_successes"`
	TotalFailures        int64     `json:"total_failures"`
	TotalRejections      int64     `json:"total_rejections"`
	LastStateChange      time.Time `json:"last_state_change"`
	HalfOpenInFlight     int       `json:"half_open_in_flight"`
}
