package selector

import (
	"log/slog"
	"sort"
	"time"

	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/ratelimit"
)

// Latency bounds for the speed sub-score. A median at or below the fast
// bound scores 100, at or above the slow bound scores 0.
const (
	fastLatency = 500 * time.Millisecond
	slowLatency = 15 * time.Second
)

// HealthGate reports whether a provider's circuit currently rejects
// traffic. It is satisfied by *breaker.Manager.
type HealthGate interface {
	IsOpen(provider string) bool
}

// BudgetAuthority is the budget-check dependency of the scorer. It is
// satisfied by *ratelimit.Limiter.
type BudgetAuthority interface {
	CheckBudget(provider string, estimatedTokens int64) (*ratelimit.Decision, error)
}

// Scorer ranks candidate providers by cost, speed, reliability and
// capability, and excludes providers whose circuit is open or whose
// budget check fails.
type Scorer struct {
	config   Config
	registry *providers.Registry
	stats    *providers.Stats
	gate     HealthGate
	budget   BudgetAuthority
	logger   *slog.Logger
}

// NewScorer creates a Scorer over the given registry and outcome stats.
func NewScorer(cfg Config, registry *providers.Registry, stats *providers.Stats, gate HealthGate, budget BudgetAuthority, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		config:   cfg,
		registry: registry,
		stats:    stats,
		gate:     gate,
		budget:   budget,
		logger:   logger.With("component", "selector"),
	}
}

// Score computes the four sub-scores and the weighted total for one
// provider, along with its current availability.
func (s *Scorer) Score(p providers.Provider, estimatedTokens int64) CandidateScore {
	score := CandidateScore{
		Provider:         p.ID,
		CostScore:        s.costScore(p),
		SpeedScore:       s.speedScore(p.ID),
		ReliabilityScore: s.reliabilityScore(p.ID),
		CapabilityScore:  capabilityScore(p.Tier),
		Available:        s.available(p.ID, estimatedTokens),
	}
	w := s.config.Weights
	score.TotalScore = w.Cost*score.CostScore +
		w.Speed*score.SpeedScore +
		w.Reliability*score.ReliabilityScore +
		w.Capability*score.CapabilityScore
	return score
}

// Candidates scores every provider serving the purpose at the required
// capability tier or better, sorted by the strategy's key descending.
// A zero minCapabilityTier accepts any tier; an empty purpose accepts
// any provider.
func (s *Scorer) Candidates(purpose string, minCapabilityTier int, estimatedTokens int64, strategy ScoringStrategy) []CandidateScore {
	var scores []CandidateScore
	for _, p := range s.registry.All() {
		if purpose != "" && !p.ServesPurpose(purpose) {
			continue
		}
		if minCapabilityTier > 0 && p.Tier > minCapabilityTier {
			continue
		}
		scores = append(scores, s.Score(p, estimatedTokens))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return strategy.Key(scores[i]) > strategy.Key(scores[j])
	})
	return scores
}

// SelectBest returns the best-scoring available candidate under the
// strategy. When every candidate is unavailable the best unavailable one
// is returned rather than nothing, so a caller holding a request of last
// resort still has a target. ErrNoCandidates means no provider serves
// the purpose at the required tier at all.
func (s *Scorer) SelectBest(purpose string, minCapabilityTier int, estimatedTokens int64, strategy ScoringStrategy) (*CandidateScore, error) {
	scores := s.Candidates(purpose, minCapabilityTier, estimatedTokens, strategy)
	if len(scores) == 0 {
		return nil, ErrNoCandidates
	}
	for i := range scores {
		if scores[i].Available {
			s.logger.Debug("provider selected",
				"provider", scores[i].Provider,
				"strategy", strategy.Name(),
				"total_score", scores[i].TotalScore)
			return &scores[i], nil
		}
	}
	s.logger.Warn("no available candidate, returning best unavailable",
		"provider", scores[0].Provider,
		"purpose", purpose)
	return &scores[0], nil
}

func (s *Scorer) costScore(p providers.Provider) float64 {
	floor, ceiling := s.config.CostScoreFloor, s.config.CostScoreCeiling
	if ceiling <= floor {
		return 50
	}
	tpd := p.TokensPerDollar()
	return clampScore((tpd - floor) / (ceiling - floor) * 100)
}

func (s *Scorer) speedScore(provider string) float64 {
	median, ok := s.stats.MedianLatency(provider)
	if !ok || median <= 0 {
		// No latency samples yet: neutral.
		return 50
	}
	frac := float64(median-fastLatency) / float64(slowLatency-fastLatency)
	return clampScore((1 - frac) * 100)
}

func (s *Scorer) reliabilityScore(provider string) float64 {
	rate, ok := s.stats.SuccessRate(provider)
	if !ok {
		// Unproven providers score full marks so they get tried.
		return 100
	}
	return clampScore(rate * 100)
}

// capabilityScore maps tier 1 to 100 down to tier 5 at 20.
func capabilityScore(tier int) float64 {
	return clampScore(float64(120 - 20*tier))
}

func (s *Scorer) available(provider string, estimatedTokens int64) bool {
	if s.gate != nil && s.gate.IsOpen(provider) {
		return false
	}
	if s.budget != nil {
		decision, err := s.budget.CheckBudget(provider, estimatedTokens)
		if err != nil || !decision.Allowed {
			return false
		}
	}
	return true
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
