package selector

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoCandidates is returned when no provider serves the requested
	// purpose at an acceptable capability tier.
	ErrNoCandidates = errors.New("no candidate providers")

	// ErrQueueFull is returned when the pending queue is at capacity.
	ErrQueueFull = errors.New("pending queue full")

	// ErrQueueEmpty is returned when a dequeue finds no live entries.
	ErrQueueEmpty = errors.New("pending queue empty")
)

// Priority orders pending requests when concurrency is saturated. Lower
// values dequeue first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBulk
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	case PriorityBulk:
		return "BULK"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// ParsePriority converts a priority name to its value.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "CRITICAL":
		return PriorityCritical, nil
	case "HIGH":
		return PriorityHigh, nil
	case "NORMAL":
		return PriorityNormal, nil
	case "LOW":
		return PriorityLow, nil
	case "BULK":
		return PriorityBulk, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}

// Config contains selector settings.
type Config struct {
	// Weights combine the four sub-scores into a total score.
	Weights Weights

	// CostScoreFloor and CostScoreCeiling bound the tokens-per-dollar
	// normalization. A provider at or below the floor scores 0; at or
	// above the ceiling scores 100.
	CostScoreFloor   float64
	CostScoreCeiling float64

	// QueueCapacity bounds the pending request queue.
	QueueCapacity int
}

// Weights are the combination weights for the four sub-scores. They are
// validated elsewhere to sum to 1.0.
type Weights struct {
	Cost        float64 `yaml:"cost" json:"cost"`
	Speed       float64 `yaml:"speed" json:"speed"`
	Reliability float64 `yaml:"reliability" json:"reliability"`
	Capability  float64 `yaml:"capability" json:"capability"`
}

// CandidateScore is one provider's scored candidacy for a selection
// call. Scores are computed fresh on every call and never persisted.
type CandidateScore struct {
	Provider         string  `json:"provider"`
	CostScore        float64 `json:"cost_score"`
	SpeedScore       float64 `json:"speed_score"`
	ReliabilityScore float64 `json:"reliability_score"`
	CapabilityScore  float64 `json:"capability_score"`
	TotalScore       float64 `json:"total_score"`
	Available        bool    `json:"available"`
}

// PendingRequest is one queued request waiting for admission.
type PendingRequest struct {
	ID              string
	Role            string
	Purpose         string
	Priority        Priority
	EstimatedTokens int64
	EnqueuedAt      time.Time

	// Deadline drops the entry instead of serving it once passed.
	Deadline time.Time
}

func (r *PendingRequest) expired(now time.Time) bool {
	return !r.Deadline.IsZero() && now.After(r.Deadline)
}
