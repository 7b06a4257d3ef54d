// Package audit keeps an append-only SQLite trail of governance
// decisions: slot grants and denials, forced fallbacks, failover
// resolutions, circuit transitions, and stale-slot reclaims.
//
// The trail answers "why did caller X end up on provider Y at 14:02"
// after the fact. It is written on the decision path but never read
// there; queries and retention pruning run out of band.
package audit
