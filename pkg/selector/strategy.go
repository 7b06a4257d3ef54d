package selector

import "fmt"

// ScoringStrategy turns a scored candidate into a sort key. Higher keys
// win. The set of strategies is closed: each named strategy is a fixed
// implementation, and StrategyByName is the only way to obtain one.
type ScoringStrategy interface {
	Name() string
	Key(score CandidateScore) float64
}

// Strategy names accepted by StrategyByName and the configuration file.
const (
	StrategyCostOptimized        = "COST_OPTIMIZED"
	StrategySpeedOptimized       = "SPEED_OPTIMIZED"
	StrategyReliabilityOptimized = "RELIABILITY_OPTIMIZED"
	StrategyCapabilityFirst      = "CAPABILITY_FIRST"
	StrategyBalanced             = "BALANCED"
)

// StrategyByName returns the named strategy. Both the canonical names
// and the short configuration-file forms ("cost", "speed",
// "reliability", "capability", "balanced") are accepted.
func StrategyByName(name string) (ScoringStrategy, error) {
	switch name {
	case StrategyCostOptimized, "cost":
		return costOptimized{}, nil
	case StrategySpeedOptimized, "speed":
		return speedOptimized{}, nil
	case StrategyReliabilityOptimized, "reliability":
		return reliabilityOptimized{}, nil
	case StrategyCapabilityFirst, "capability":
		return capabilityFirst{}, nil
	case StrategyBalanced, "balanced":
		return balanced{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", name)
	}
}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	return []string{
		StrategyCostOptimized,
		StrategySpeedOptimized,
		StrategyReliabilityOptimized,
		StrategyCapabilityFirst,
		StrategyBalanced,
	}
}

type costOptimized struct{}

func (costOptimized) Name() string { return StrategyCostOptimized }
func (costOptimized) Key(s CandidateScore) float64 { return s.CostScore }

type speedOptimized struct{}

func (speedOptimized) Name() string { return StrategySpeedOptimized }
func (speedOptimized) Key(s CandidateScore) float64 { return s.SpeedScore }

type reliabilityOptimized struct{}

func (reliabilityOptimized) Name() string { return StrategyReliabilityOptimized }
func (reliabilityOptimized) Key(s CandidateScore) float64 { return s.ReliabilityScore }

type capabilityFirst struct{}

func (capabilityFirst) Name() string { return StrategyCapabilityFirst }
func (capabilityFirst) Key(s CandidateScore) float64 { return s.CapabilityScore }

type balanced struct{}

func (balanced) Name() string { return StrategyBalanced }
func (balanced) Key(s CandidateScore) float64 { return s.TotalScore }
