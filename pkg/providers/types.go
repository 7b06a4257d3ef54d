package providers

// Well-known workload purposes. Chains are configured per purpose; these
// constants cover the built-in agent fleet, but any purpose name that appears
// in the configuration is valid.
const (
	PurposeOrchestrator = "orchestrator"
	PurposeReasoning    = "reasoning"
	PurposeCoding       = "coding"
	PurposeLibrarian    = "librarian"
)

// Tier bounds. Tier 1 is the most capable and expensive; tier 5 is the
// cheapest and fastest.
const (
	TierMax = 1
	TierMin = 5
)

// Provider is the static description of a governed backend provider:
// identity, capability tier, workload purposes, cost, and token quotas.
// Provider values are immutable once loaded; mutable runtime state (budget
// counters, circuit records, outcome stats) lives in the components that own
// it.
type Provider struct {
	// ID is the provider identifier (e.g., "claude-opus", "gpt-4o-mini").
	ID string

	// Tier is the capability/cost rank (1 = most capable, 5 = cheapest).
	Tier int

	// Purposes lists the workload purposes this provider serves.
	Purposes []string

	// CostPerMTokens is the cost in USD per million tokens.
	CostPerMTokens float64

	// TokensPerMinute is the rolling 1-minute token quota (0 = unlimited).
	TokensPerMinute int64

	// TokensPerDay is the rolling 24-hour token quota (0 = unlimited).
	TokensPerDay int64
}

// ServesPurpose reports whether the provider is tagged with the given
// workload purpose.
func (p Provider) ServesPurpose(purpose string) bool {
	for _, tag := range p.Purposes {
		if tag == purpose {
			return true
		}
	}
	return false
}

// TokensPerDollar returns how many tokens one dollar buys from this
// provider. Used by the selector's cost score.
func (p Provider) TokensPerDollar() float64 {
	if p.CostPerMTokens <= 0 {
		return 0
	}
	return 1_000_000 / p.CostPerMTokens
}
