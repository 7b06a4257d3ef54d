// Package metrics exposes Prometheus metrics for the governance layer:
// admission decisions, budget consumption, circuit state, and provider
// selection. Each concern gets its own metric group registered on one
// shared registry; the Collector ties them together and serves the
// scrape endpoint.
package metrics
