// Package server exposes governance state over HTTP for operators and
// dashboards.
//
// Endpoints:
//
//	GET /healthz           liveness probe
//	GET /status            full governance snapshot (circuits, budgets, slots, marks)
//	GET /status/providers  per-provider circuit and budget state
//	GET /status/slots      per-role occupancy and active slots
//	GET /metrics           Prometheus scrape endpoint (when metrics are enabled)
//
// Everything served here is a read-only snapshot; the dashboard never
// mutates governance state through this surface.
package server
