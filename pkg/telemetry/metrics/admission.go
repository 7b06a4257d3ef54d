package metrics

import (
	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AdmissionMetrics tracks slot governor activity.
//
// Metrics:
//   - warden_governance_admissions_total: admission decisions by role and outcome
//   - warden_governance_active_slots: currently held slots by role
//   - warden_governance_stale_reclaims_total: slots reclaimed by the stale sweep
//   - warden_governance_aggregate_estimated_tokens: summed estimates of active slots
type AdmissionMetrics struct {
	admissions      *prometheus.CounterVec
	activeSlots     *prometheus.GaugeVec
	staleReclaims   prometheus.Counter
	aggregateTokens prometheus.Gauge
}

// NewAdmissionMetrics creates and registers admission metrics with the
// provided registry.
func NewAdmissionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admissions_total",
				Help:      "Admission decisions by role and outcome (granted, fallback, denied)",
			},
			[]string{"role", "outcome"},
		),
		activeSlots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_slots",
				Help:      "Currently held concurrency slots by role",
			},
			[]string{"role"},
		),
		staleReclaims: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stale_reclaims_total",
				Help:      "Slots force-released because they outlived the stale timeout",
			},
		),
		aggregateTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "aggregate_estimated_tokens",
				Help:      "Summed estimated tokens across all active slots",
			},
		),
	}

	registry.MustRegister(
		am.admissions,
		am.activeSlots,
		am.staleReclaims,
		am.aggregateTokens,
	)
	return am
}

// RecordAdmission counts one admission decision. Outcome is one of
// "granted", "fallback", "denied".
func (am *AdmissionMetrics) RecordAdmission(role, outcome string) {
	am.admissions.WithLabelValues(role, outcome).Inc()
}

// SetActiveSlots updates the active slot gauge for a role.
func (am *AdmissionMetrics) SetActiveSlots(role string, n int) {
	am.activeSlots.WithLabelValues(role).Set(float64(n))
}

// AddStaleReclaims counts reclaimed slots.
func (am *AdmissionMetrics) AddStaleReclaims(n int) {
	if n > 0 {
		am.staleReclaims.Add(float64(n))
	}
}

// SetAggregateTokens updates the aggregate estimate gauge.
func (am *AdmissionMetrics) SetAggregateTokens(tokens int64) {
	am.aggregateTokens.Set(float64(tokens))
}
