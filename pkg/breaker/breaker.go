package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// Breaker is a per-provider failure/success state machine that gates traffic
// based on health, independently of quota state.
//
// Every counter mutation and state transition happens under the breaker's
// own mutex, so two concurrent callers can never both believe they hold the
// last half-open probe slot. Each provider gets its own Breaker (and mutex):
// health checks on different providers never serialize against each other.
type Breaker struct {
	provider string
	config   Config

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	totalRequests        int64
	totalSuccesses       int64
	totalFailures        int64
	totalRejections      int64
	lastStateChange      time.Time
	halfOpenInFlight     int

	onStateChange func(provider string, from, to State)
}

// New creates a closed breaker for the given provider.
func New(provider string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.MaxHalfOpenProbes <= 0 {
		cfg.MaxHalfOpenProbes = 1
	}

	return &Breaker{
		provider:        provider,
		config:          cfg,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// OnStateChange sets a callback invoked (on its own goroutine) after every
// state transition.
func (b *Breaker) OnStateChange(fn func(provider string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// CanExecute is the admission gate.
//
// CLOSED always allows. OPEN allows only once the recovery timeout has
// elapsed, in which case the breaker lazily transitions to HALF_OPEN and the
// caller becomes the first probe. HALF_OPEN allows up to MaxHalfOpenProbes
// concurrent probes, tracked by an in-flight counter that RecordSuccess and
// RecordFailure decrement.
//
// A caller admitted by CanExecute must eventually call RecordSuccess or
// RecordFailure, otherwise a half-open probe slot leaks until the next
// transition.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastStateChange) >= b.config.RecoveryTimeout {
			b.transitionLocked(StateHalfOpen)
			b.halfOpenInFlight = 1
			return true
		}
		b.totalRejections++
		return false

	case StateHalfOpen:
		if b.halfOpenInFlight < b.config.MaxHalfOpenProbes {
			b.halfOpenInFlight++
			return true
		}
		b.totalRejections++
		return false

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	b.totalSuccesses++

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0
		b.consecutiveSuccesses++

	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.consecutiveSuccesses++
		b.consecutiveFailures = 0
		if b.consecutiveSuccesses >= b.config.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}

	case StateOpen:
		// A straggler reporting success for a call admitted before the
		// circuit opened. Count it but do not transition.
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	b.totalFailures++
	b.consecutiveSuccesses = 0
	b.consecutiveFailures++

	switch b.state {
	case StateClosed:
		if b.shouldOpenLocked() {
			b.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		// Any failure during probing reopens the circuit.
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.transitionLocked(StateOpen)

	case StateOpen:
		// Straggler failure; the circuit is already open.
	}
}

// IsOpen reports whether the circuit currently rejects traffic. An OPEN
// breaker past its recovery timeout lazily transitions to HALF_OPEN here,
// so availability queries observe recovery without a dedicated probe call.
// In HALF_OPEN the circuit reads as open once every probe slot is taken;
// CanExecute remains the gate that actually claims a slot.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastStateChange) >= b.config.RecoveryTimeout {
		b.transitionLocked(StateHalfOpen)
	}

	switch b.state {
	case StateOpen:
		return true
	case StateHalfOpen:
		return b.halfOpenInFlight >= b.config.MaxHalfOpenProbes
	default:
		return false
	}
}

// State returns the current state without side effects. Note that an OPEN
// breaker past its recovery timeout still reports OPEN here; CanExecute and
// IsOpen perform the lazy transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Record{
		Provider:             b.provider,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalRequests:        b.totalRequests,
		TotalSuccesses:       b.totalSuccesses,
		TotalFailures:        b.totalFailures,
		TotalRejections:      b.totalRejections,
		LastStateChange:      b.lastStateChange,
		HalfOpenInFlight:     b.halfOpenInFlight,
	}
}

// Reset returns the breaker to CLOSED and clears all counters.
// Primarily for testing and operator intervention.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transitionLocked(StateClosed)
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.totalRequests = 0
	b.totalSuccesses = 0
	b.totalFailures = 0
	b.totalRejections = 0
	b.halfOpenInFlight = 0
}

// shouldOpenLocked evaluates both opening conditions: the consecutive
// failure threshold and the overall failure rate. The rate condition is
// inert unless both of its knobs are configured, so a zero-valued config
// does not open on the first failure. Caller must hold the lock.
func (b *Breaker) shouldOpenLocked() bool {
	if b.consecutiveFailures >= b.config.FailureThreshold {
		return true
	}
	if b.config.MinRequestsForRate > 0 && b.config.FailureRateThreshold > 0 &&
		b.totalRequests >= int64(b.config.MinRequestsForRate) {
		rate := float64(b.totalFailures) / float64(b.totalRequests)
		if rate >= b.config.FailureRateThreshold {
			return true
		}
	}
	return false
}

// transitionLocked moves to a new state, resetting transition-scoped
// counters. Caller must hold the lock.
func (b *Breaker) transitionLocked(to State) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.lastStateChange = time.Now()

	switch to {
	case StateClosed:
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
		b.halfOpenInFlight = 0
	case StateHalfOpen:
		b.consecutiveSuccesses = 0
		b.halfOpenInFlight = 0
	case StateOpen:
		b.halfOpenInFlight = 0
	}

	slog.Info("circuit state changed",
		"provider", b.provider,
		"from", from.String(),
		"to", to.String(),
	)

	if b.onStateChange != nil {
		// Deliver outside the lock.
		go b.onStateChange(b.provider, from, to)
	}
}
