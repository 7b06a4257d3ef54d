// Package failover resolves equivalent-purpose alternatives for providers
// that are exhausted or failing.
//
// Chains are static, hand-curated per workload purpose, and ordered from
// most preferred to emergency fallback. The resolver never edits a chain:
// unavailability (an active rate-limited mark, or an open circuit) is a
// filter applied at lookup time. When a purpose chain is exhausted the
// search widens to a tier-distance scan over the whole catalog, preferring
// same-tier replacements and degrading gracefully toward cheaper tiers
// before considering anything else.
//
//	next, err := resolver.Resolve("claude-opus", providers.PurposeCoding)
//	if errors.Is(err, failover.ErrChainExhausted) {
//	    // nothing left anywhere; surface to the caller
//	}
//
// Rate-limited marks carry a cooldown deadline and expire on their own;
// a marked provider reappears in lookups exactly when its deadline passes.
package failover
