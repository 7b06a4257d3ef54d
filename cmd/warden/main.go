// Warden is an admission-and-failover governance layer for LLM agent
// fleets.
//
// It sits between an agent orchestrator and its LLM providers,
// providing:
//   - Token budget rate limiting per provider (minute and daily windows)
//   - Per-provider circuit breaking with half-open probing
//   - Purpose-aware failover chain resolution
//   - Per-role concurrency slot governance with forced fallback
//   - Cost/speed/reliability/capability provider selection
//
// Usage:
//
//	# Start with default configuration
//	warden run
//
//	# Start with custom configuration file
//	warden run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	warden validate --config /path/to/config.yaml
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
