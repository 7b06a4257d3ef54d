// Package telemetry provides observability for Warden.
//
// # Components
//
//   - logging: structured slog-based logging with JSON and text handlers
//   - metrics: Prometheus metrics for admission, budgets, circuits, and
//     selection
//
// Both subpackages are wired by the governance service: components never
// import them directly, the service records on their behalf after each
// operation. This keeps the admission path free of metric plumbing and
// lets tests construct components without a registry.
package telemetry
