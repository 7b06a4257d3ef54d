// Package selector ranks candidate providers and spreads load across
// the admissible set.
//
// Scoring combines four sub-scores (0-100 each): cost from tokens per
// dollar normalized against a configured floor and ceiling, speed from
// the inverse of recent median latency, reliability from the recent
// success rate, and capability from the provider tier. The weighted
// total drives the BALANCED strategy; the other strategies sort by a
// single sub-score. Providers whose circuit is open or whose budget
// check fails are marked unavailable and only returned when nothing
// else is left.
//
// When concurrency is saturated, pending requests wait in a bounded
// five-level priority queue ordered by priority then arrival; entries
// past their deadline are dropped, never served. The Balancer spreads
// picks across providers in proportion to score-derived weights,
// recomputed on a fixed interval.
package selector
