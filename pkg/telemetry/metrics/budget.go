package metrics

import (
	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetMetrics tracks token budget consumption and rejections.
//
// Metrics:
//   - warden_governance_budget_checks_total: budget checks by provider and outcome
//   - warden_governance_tokens_used_total: tokens recorded against each provider
//   - warden_governance_budget_remaining: remaining tokens by provider and window
//   - warden_governance_budget_rejections_total: consecutive-rejection backoff events
type BudgetMetrics struct {
	checks     *prometheus.CounterVec
	tokensUsed *prometheus.CounterVec
	remaining  *prometheus.GaugeVec
	rejections *prometheus.CounterVec
}

// NewBudgetMetrics creates and registers budget metrics with the
// provided registry.
func NewBudgetMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BudgetMetrics {
	bm := &BudgetMetrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_checks_total",
				Help:      "Budget checks by provider and outcome (allowed, rejected)",
			},
			[]string{"provider", "outcome"},
		),
		tokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_used_total",
				Help:      "Tokens recorded against each provider",
			},
			[]string{"provider"},
		),
		remaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_remaining",
				Help:      "Remaining token budget by provider and window (minute, daily)",
			},
			[]string{"provider", "window"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_rejections_total",
				Help:      "Provider-reported rate limit rejections",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		bm.checks,
		bm.tokensUsed,
		bm.remaining,
		bm.rejections,
	)
	return bm
}

// RecordCheck counts one budget check. Outcome is "allowed" or
// "rejected".
func (bm *BudgetMetrics) RecordCheck(provider, outcome string) {
	bm.checks.WithLabelValues(provider, outcome).Inc()
}

// AddTokensUsed counts actual token consumption.
func (bm *BudgetMetrics) AddTokensUsed(provider string, tokens int64) {
	if tokens > 0 {
		bm.tokensUsed.WithLabelValues(provider).Add(float64(tokens))
	}
}

// SetRemaining updates remaining-budget gauges. Window is "minute" or
// "daily".
func (bm *BudgetMetrics) SetRemaining(provider, window string, tokens int64) {
	bm.remaining.WithLabelValues(provider, window).Set(float64(tokens))
}

// RecordRejection counts one provider rate limit rejection.
func (bm *BudgetMetrics) RecordRejection(provider string) {
	bm.rejections.WithLabelValues(provider).Inc()
}
