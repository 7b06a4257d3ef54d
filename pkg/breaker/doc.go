// Package breaker implements per-provider circuit breakers.
//
// # State machine
//
// Each provider has an independent CLOSED / OPEN / HALF_OPEN state machine:
//
//   - CLOSED -> OPEN when consecutive failures reach the failure threshold,
//     or when the overall failure rate crosses its threshold after a minimum
//     number of observed requests.
//   - OPEN -> HALF_OPEN lazily, on the first CanExecute call after the
//     recovery timeout elapses. No timer runs while the circuit is open.
//   - HALF_OPEN -> CLOSED after enough consecutive probe successes;
//     HALF_OPEN -> OPEN on any probe failure.
//
// While HALF_OPEN, at most MaxHalfOpenProbes callers are admitted
// concurrently. The in-flight probe count is tracked under the breaker's
// mutex together with every other counter, so the probe budget cannot be
// double-spent by racing callers.
//
// # Usage
//
//	mgr := breaker.NewManager(cfg)
//
//	if !mgr.CanExecute("gpt-4o") {
//	    // divert to a failover target
//	}
//	// ... perform the call ...
//	if err != nil {
//	    mgr.RecordFailure("gpt-4o")
//	} else {
//	    mgr.RecordSuccess("gpt-4o")
//	}
package breaker
