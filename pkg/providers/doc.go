// Package providers holds the static provider catalog and recent outcome
// statistics.
//
// # Registry
//
// The Registry is loaded once from configuration at startup and replaced
// atomically on configuration reload. It answers identity questions only:
// which providers exist, their capability tier, workload purposes, cost, and
// token quotas. Warden never talks to a provider itself; the catalog is the
// boundary contract with the transport layer.
//
// # Stats
//
// Stats accumulates recent call outcomes (latency, success/failure) reported
// by the transport after each real network call. The selector reads medians
// and success rates from it when scoring candidates. Samples age out of a
// rolling window lazily on access.
package providers
