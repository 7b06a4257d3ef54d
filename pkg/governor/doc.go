// Package governor issues and reclaims agent concurrency slots.
//
// An agent fleet without admission control starts every worker at once
// and discovers provider limits by colliding with them. The governor
// replaces that with a single serialized admission authority: callers
// ask for a slot before invoking a provider, hold it for the duration of
// the call, and release it with the actual token count afterwards.
//
// # Decision sequence
//
// Every AcquireSlot runs the same ordered checks:
//
//  1. Stale slots (held past StaleSlotTimeout) are reclaimed.
//  2. The grant cooldown is enforced, smoothing start storms.
//  3. The role's concurrency ceiling is checked. Roles that allow it are
//     demoted to a fallback-provider grant; others are denied.
//  4. The provider token budget is consulted. Short waits are honored
//     once; budget failover suggestions substitute transparently.
//  5. The global token ceiling across all active slots is checked.
//
// # Crash safety
//
// A caller that dies without releasing would leak its slot forever, so
// slots age out: reclamation runs lazily inside every acquire and
// periodically via ReclaimStale. Release is idempotent, which makes a
// late release after a stale reclaim harmless. The stale timeout is
// validated elsewhere to be at least the circuit recovery timeout, so a
// provider outage cannot pin slots past the point where traffic could
// resume.
package governor
