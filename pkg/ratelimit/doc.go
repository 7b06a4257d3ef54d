// Package ratelimit tracks per-provider token budgets over fixed 1-minute
// and 24-hour windows.
//
// # Overview
//
// Each provider has two counters with independent window-start timestamps.
// A budget check answers "can N tokens be spent now?" without reserving
// anything; actual consumption is reported afterwards with the real token
// count. Rejection signals from the transport feed an exponential backoff
// with jitter.
//
//	limiter := ratelimit.NewLimiter(cfg, registry.All(), resolver)
//
//	decision, err := limiter.CheckBudget("claude-opus", 8000)
//	if err != nil {
//	    return err
//	}
//	if !decision.Allowed {
//	    // decision.Wait or decision.FailoverSuggestion tells the caller
//	    // how to proceed.
//	}
//
//	// After the call completes:
//	limiter.RecordUsage("claude-opus", actualTokens)
//
// # Lazy window reset
//
// Windows reset on access rather than on a timer: when an access observes
// that a window has elapsed, the counter and window start reset under the
// limiter lock before the operation proceeds. Concurrent callers therefore
// never act on a stale counter, and an idle process carries no background
// goroutine.
//
// # Waiting vs. failover
//
// The limiter never tells a caller to wait longer than the configured short
// threshold. A minute window that rolls over within the threshold is worth
// waiting for; anything longer, and daily exhaustion in particular, yields a
// failover suggestion instead.
package ratelimit
