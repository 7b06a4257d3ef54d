// Package governance composes the admission-and-failover layer into a
// single dependency-injected Service.
//
// One Service owns one rate limiter, one circuit breaker manager, one
// failover resolver, one slot governor, and one selector, wired
// together over a shared provider registry. Callers follow one flow:
//
//	grant, err := svc.AcquireSlot(ctx, req)     // admission
//	...call the assigned provider...
//	svc.ReportOutcome(provider, ok, status, dt) // health + budget signals
//	svc.ReleaseSlot(grant.SlotID, actualTokens) // return capacity
//
// Budget exhaustion and open circuits are resolved internally through
// failover substitution wherever possible; only ChainExhausted and
// InvalidConfiguration surface to callers as hard errors.
//
// All governance state is process-lifetime and reinitializes from
// configuration on restart. The optional usage journal and audit trail
// persist history for operators but are never read back into state.
package governance
