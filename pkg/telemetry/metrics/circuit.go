package metrics

import (
	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CircuitMetrics tracks circuit breaker state and transitions.
//
// Metrics:
//   - warden_governance_circuit_state: current state (0=closed, 1=open, 2=half-open)
//   - warden_governance_circuit_transitions_total: transitions by provider and target state
//   - warden_governance_circuit_rejections_total: requests rejected by an open circuit
type CircuitMetrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewCircuitMetrics creates and registers circuit metrics with the
// provided registry.
func NewCircuitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CircuitMetrics {
	cm := &CircuitMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_state",
				Help:      "Circuit state by provider (0=closed, 1=open, 2=half-open)",
			},
			[]string{"provider"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_transitions_total",
				Help:      "Circuit state transitions by provider and target state",
			},
			[]string{"provider", "to"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_rejections_total",
				Help:      "Requests rejected because the provider circuit was open",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		cm.state,
		cm.transitions,
		cm.rejections,
	)
	return cm
}

// SetState updates the state gauge. The value follows the breaker's
// numeric state encoding.
func (cm *CircuitMetrics) SetState(provider string, state int) {
	cm.state.WithLabelValues(provider).Set(float64(state))
}

// RecordTransition counts one transition into the named state.
func (cm *CircuitMetrics) RecordTransition(provider, to string) {
	cm.transitions.WithLabelValues(provider, to).Inc()
}

// RecordRejection counts one open-circuit rejection.
func (cm *CircuitMetrics) RecordRejection(provider string) {
	cm.rejections.WithLabelValues(provider).Inc()
}
