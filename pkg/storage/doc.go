// Package storage persists the usage journal: periodic per-provider
// budget snapshots taken from the rate limiter.
//
// The journal is observational only. Budget counters live in memory and
// reinitialize from configuration on restart; nothing is ever restored
// from the journal. Two backends are provided: an in-memory ring for
// the default case and a SQLite backend for deployments that want usage
// history to survive restarts.
package storage
