package selector

import (
	"log/slog"
	"sync"
)

// Balancer spreads load across admissible providers using a
// weighted-fair approximation: each provider carries a weight derived
// from its total score, and Pick chooses the provider with the lowest
// observed-count to weight ratio. Weights are recomputed periodically
// from fresh scores, which also resets the observed counts so stale
// history cannot pin the distribution.
type Balancer struct {
	mu       sync.Mutex
	weights  map[string]float64
	observed map[string]int64
	logger   *slog.Logger
}

// NewBalancer creates an empty Balancer. It returns nothing useful from
// Pick until the first Rebalance.
func NewBalancer(logger *slog.Logger) *Balancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Balancer{
		weights:  make(map[string]float64),
		observed: make(map[string]int64),
		logger:   logger.With("component", "balancer"),
	}
}

// Rebalance replaces the weight table from fresh candidate scores and
// resets observed counts. Zero and negative total scores get a small
// positive weight so a weak provider still receives trickle traffic.
func (b *Balancer) Rebalance(scores []CandidateScore) {
	weights := make(map[string]float64, len(scores))
	for _, s := range scores {
		w := s.TotalScore
		if w < 1 {
			w = 1
		}
		weights[s.Provider] = w
	}

	b.mu.Lock()
	b.weights = weights
	b.observed = make(map[string]int64, len(weights))
	b.mu.Unlock()

	b.logger.Debug("balancer weights recomputed", "providers", len(weights))
}

// Pick returns the admissible provider with the lowest observed/weight
// ratio and counts the pick. Providers missing from the weight table
// are treated as weight 1. Returns false when admissible is empty.
func (b *Balancer) Pick(admissible []string) (string, bool) {
	if len(admissible) == 0 {
		return "", false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	best := ""
	bestRatio := 0.0
	for _, provider := range admissible {
		w := b.weights[provider]
		if w <= 0 {
			w = 1
		}
		ratio := float64(b.observed[provider]) / w
		if best == "" || ratio < bestRatio {
			best = provider
			bestRatio = ratio
		}
	}
	b.observed[best]++
	return best, true
}

// Observed returns a copy of the per-provider pick counts since the
// last rebalance.
func (b *Balancer) Observed() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int64, len(b.observed))
	for provider, n := range b.observed {
		out[provider] = n
	}
	return out
}

// Weights returns a copy of the current weight table.
func (b *Balancer) Weights() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(b.weights))
	for provider, w := range b.weights {
		out[provider] = w
	}
	return out
}
