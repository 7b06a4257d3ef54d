package metrics

import (
	"net/http"

	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry and all governance metric
// groups. Components record through the typed groups; the HTTP handler
// exposes the registry for scraping.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Admission tracks slot governor activity.
	Admission *AdmissionMetrics

	// Budget tracks token budget consumption.
	Budget *BudgetMetrics

	// Circuit tracks circuit breaker state.
	Circuit *CircuitMetrics

	// Selection tracks provider selection and queueing.
	Selection *SelectionMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// private registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "warden"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "governance"
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		Admission: NewAdmissionMetrics(cfg, registry),
		Budget:    NewBudgetMetrics(cfg, registry),
		Circuit:   NewCircuitMetrics(cfg, registry),
		Selection: NewSelectionMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler serving the scrape endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
