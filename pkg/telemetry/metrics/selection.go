package metrics

import (
	"time"

	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SelectionMetrics tracks provider selection, failover, and queueing.
//
// Metrics:
//   - warden_governance_selections_total: selections by provider and strategy
//   - warden_governance_failovers_total: failover resolutions by source provider
//   - warden_governance_provider_latency_seconds: reported call latencies
//   - warden_governance_queue_depth: pending request queue depth
//   - warden_governance_queue_dropped_total: queue entries dropped past deadline
type SelectionMetrics struct {
	selections *prometheus.CounterVec
	failovers  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	queueDepth prometheus.Gauge
	queueDrops prometheus.Counter
}

// NewSelectionMetrics creates and registers selection metrics with the
// provided registry.
func NewSelectionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SelectionMetrics {
	sm := &SelectionMetrics{
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "selections_total",
				Help:      "Provider selections by provider and strategy",
			},
			[]string{"provider", "strategy"},
		),
		failovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "failovers_total",
				Help:      "Failover resolutions away from each source provider",
			},
			[]string{"from"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Reported provider call latency in seconds",
				// LLM call latencies run 100ms to 30s.
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"provider"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queue_depth",
				Help:      "Pending request priority queue depth",
			},
		),
		queueDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queue_dropped_total",
				Help:      "Queue entries dropped because their deadline passed",
			},
		),
	}

	registry.MustRegister(
		sm.selections,
		sm.failovers,
		sm.latency,
		sm.queueDepth,
		sm.queueDrops,
	)
	return sm
}

// RecordSelection counts one provider selection.
func (sm *SelectionMetrics) RecordSelection(provider, strategy string) {
	sm.selections.WithLabelValues(provider, strategy).Inc()
}

// RecordFailover counts one failover resolution away from a provider.
func (sm *SelectionMetrics) RecordFailover(from string) {
	sm.failovers.WithLabelValues(from).Inc()
}

// RecordLatency records one reported call latency.
func (sm *SelectionMetrics) RecordLatency(provider string, latency time.Duration) {
	if latency > 0 {
		sm.latency.WithLabelValues(provider).Observe(latency.Seconds())
	}
}

// SetQueueDepth updates the queue depth gauge.
func (sm *SelectionMetrics) SetQueueDepth(n int) {
	sm.queueDepth.Set(float64(n))
}

// AddQueueDrops counts dropped queue entries.
func (sm *SelectionMetrics) AddQueueDrops(n int) {
	if n > 0 {
		sm.queueDrops.Add(float64(n))
	}
}
