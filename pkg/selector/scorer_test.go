package selector

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/ratelimit"
)

// fixedGate reports a fixed set of providers as circuit-open.
type fixedGate struct {
	open map[string]bool
}

func (g *fixedGate) IsOpen(provider string) bool { return g.open[provider] }

// fixedBudget denies a fixed set of providers.
type fixedBudget struct {
	denied map[string]bool
}

func (b *fixedBudget) CheckBudget(provider string, estimatedTokens int64) (*ratelimit.Decision, error) {
	if b.denied[provider] {
		return &ratelimit.Decision{Allowed: false, Reason: "minute budget exhausted"}, nil
	}
	return &ratelimit.Decision{Allowed: true}, nil
}

func testScorerRegistry() *providers.Registry {
	return providers.NewRegistry(map[string]config.ProviderConfig{
		"alpha": {
			Tier:           1,
			Purposes:       []string{"reasoning"},
			CostPerMTokens: 15.0, // ~66,667 tokens/$
		},
		"beta": {
			Tier:           3,
			Purposes:       []string{"reasoning", "coding"},
			CostPerMTokens: 2.0, // 500,000 tokens/$
		},
		"gamma": {
			Tier:           5,
			Purposes:       []string{"reasoning", "coding"},
			CostPerMTokens: 0.5, // 2,000,000 tokens/$
		},
	})
}

func testScorerConfig() Config {
	return Config{
		Weights:          Weights{Cost: 0.25, Speed: 0.25, Reliability: 0.25, Capability: 0.25},
		CostScoreFloor:   0,
		CostScoreCeiling: 1_000_000,
	}
}

func mustStrategy(t *testing.T, name string) ScoringStrategy {
	t.Helper()
	strategy, err := StrategyByName(name)
	if err != nil {
		t.Fatalf("Expected strategy %q, got error %v", name, err)
	}
	return strategy
}

func TestScorer_SubScores(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)
	reg := testScorerRegistry()

	alpha, _ := reg.Get("alpha")
	score := s.Score(alpha, 1000)

	// 66,667 tokens/$ against a 1M ceiling.
	if score.CostScore < 6 || score.CostScore > 7 {
		t.Errorf("Expected cost score ~6.7, got %.2f", score.CostScore)
	}
	// No latency samples: neutral speed.
	if score.SpeedScore != 50 {
		t.Errorf("Expected speed score 50 without samples, got %.2f", score.SpeedScore)
	}
	// No outcome samples: full reliability.
	if score.ReliabilityScore != 100 {
		t.Errorf("Expected reliability score 100 without samples, got %.2f", score.ReliabilityScore)
	}
	// Tier 1.
	if score.CapabilityScore != 100 {
		t.Errorf("Expected capability score 100 for tier 1, got %.2f", score.CapabilityScore)
	}
	if !score.Available {
		t.Error("Expected available with no gate or budget")
	}
}

func TestScorer_CostScoreClamped(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)
	reg := testScorerRegistry()

	// 2M tokens/$ exceeds the 1M ceiling.
	gamma, _ := reg.Get("gamma")
	if score := s.Score(gamma, 0); score.CostScore != 100 {
		t.Errorf("Expected cost score clamped to 100, got %.2f", score.CostScore)
	}
}

func TestScorer_SpeedScoreFromLatency(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	// Median at the fast bound scores 100.
	stats.RecordOutcome("alpha", true, 500*time.Millisecond)
	// Median at the slow bound scores 0.
	stats.RecordOutcome("beta", true, 15*time.Second)

	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)
	reg := testScorerRegistry()

	alpha, _ := reg.Get("alpha")
	if score := s.Score(alpha, 0); score.SpeedScore != 100 {
		t.Errorf("Expected speed score 100 at fast bound, got %.2f", score.SpeedScore)
	}
	beta, _ := reg.Get("beta")
	if score := s.Score(beta, 0); score.SpeedScore != 0 {
		t.Errorf("Expected speed score 0 at slow bound, got %.2f", score.SpeedScore)
	}
}

func TestScorer_ReliabilityScoreFromOutcomes(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	for i := 0; i < 8; i++ {
		stats.RecordOutcome("beta", true, time.Second)
	}
	for i := 0; i < 2; i++ {
		stats.RecordOutcome("beta", false, time.Second)
	}

	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)
	reg := testScorerRegistry()

	beta, _ := reg.Get("beta")
	if score := s.Score(beta, 0); score.ReliabilityScore != 80 {
		t.Errorf("Expected reliability score 80, got %.2f", score.ReliabilityScore)
	}
}

func TestScorer_CandidatesFilterByPurposeAndTier(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)

	coding := s.Candidates("coding", 0, 0, mustStrategy(t, StrategyBalanced))
	if len(coding) != 2 {
		t.Fatalf("Expected 2 coding candidates, got %d", len(coding))
	}

	// Tier 3 or better excludes gamma.
	capable := s.Candidates("coding", 3, 0, mustStrategy(t, StrategyBalanced))
	if len(capable) != 1 {
		t.Fatalf("Expected 1 candidate at tier <= 3, got %d", len(capable))
	}
	if capable[0].Provider != "beta" {
		t.Errorf("Expected beta, got %s", capable[0].Provider)
	}
}

func TestScorer_StrategyOrdering(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)

	byCost := s.Candidates("reasoning", 0, 0, mustStrategy(t, StrategyCostOptimized))
	if byCost[0].Provider != "gamma" {
		t.Errorf("Expected gamma first by cost, got %s", byCost[0].Provider)
	}

	byCapability := s.Candidates("reasoning", 0, 0, mustStrategy(t, StrategyCapabilityFirst))
	if byCapability[0].Provider != "alpha" {
		t.Errorf("Expected alpha first by capability, got %s", byCapability[0].Provider)
	}
}

func TestScorer_SelectBestSkipsUnavailable(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	gate := &fixedGate{open: map[string]bool{"gamma": true}}
	budget := &fixedBudget{denied: map[string]bool{}}
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, gate, budget, nil)

	best, err := s.SelectBest("reasoning", 0, 1000, mustStrategy(t, StrategyCostOptimized))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if best.Provider != "beta" {
		t.Errorf("Expected beta with gamma circuit open, got %s", best.Provider)
	}
}

func TestScorer_SelectBestExcludesBudgetDenied(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	budget := &fixedBudget{denied: map[string]bool{"gamma": true}}
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, budget, nil)

	best, err := s.SelectBest("reasoning", 0, 1000, mustStrategy(t, StrategyCostOptimized))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if best.Provider != "beta" {
		t.Errorf("Expected beta with gamma budget-denied, got %s", best.Provider)
	}
}

func TestScorer_SelectBestReturnsUnavailableAsLastResort(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	gate := &fixedGate{open: map[string]bool{"alpha": true, "beta": true, "gamma": true}}
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, gate, nil, nil)

	best, err := s.SelectBest("reasoning", 0, 0, mustStrategy(t, StrategyCostOptimized))
	if err != nil {
		t.Fatalf("Expected a last-resort candidate, got error %v", err)
	}
	if best.Available {
		t.Error("Expected the returned candidate to be marked unavailable")
	}
	if best.Provider != "gamma" {
		t.Errorf("Expected the best-scoring unavailable candidate gamma, got %s", best.Provider)
	}
}

func TestScorer_SelectBestNoCandidates(t *testing.T) {
	stats := providers.NewStats(time.Hour)
	s := NewScorer(testScorerConfig(), testScorerRegistry(), stats, nil, nil, nil)

	_, err := s.SelectBest("embedding", 0, 0, mustStrategy(t, StrategyBalanced))
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}
}

func TestStrategyByName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"COST_OPTIMIZED", StrategyCostOptimized},
		{"cost", StrategyCostOptimized},
		{"SPEED_OPTIMIZED", StrategySpeedOptimized},
		{"speed", StrategySpeedOptimized},
		{"RELIABILITY_OPTIMIZED", StrategyReliabilityOptimized},
		{"reliability", StrategyReliabilityOptimized},
		{"CAPABILITY_FIRST", StrategyCapabilityFirst},
		{"capability", StrategyCapabilityFirst},
		{"BALANCED", StrategyBalanced},
		{"balanced", StrategyBalanced},
	}
	for _, tc := range cases {
		strategy, err := StrategyByName(tc.input)
		if err != nil {
			t.Errorf("Expected strategy for %q, got error %v", tc.input, err)
			continue
		}
		if strategy.Name() != tc.want {
			t.Errorf("Expected %s for %q, got %s", tc.want, tc.input, strategy.Name())
		}
	}

	if _, err := StrategyByName("cheapest"); err == nil {
		t.Error("Expected error for unknown strategy name")
	}
}
