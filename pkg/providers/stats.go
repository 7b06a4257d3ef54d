package providers

import (
	"sort"
	"sync"
	"time"
)

// Stats tracks recent per-provider outcome observations: call latencies and
// success/failure counts over a rolling window. It is the selector's metrics
// source and is fed exclusively by outcome reports from the transport
// boundary.
//
// Samples outside the window are pruned lazily on access, so no background
// timer is required.
type Stats struct {
	window time.Duration

	mu      sync.Mutex
	samples map[string][]outcomeSample
}

// outcomeSample is a single observed call outcome.
type outcomeSample struct {
	at      time.Time
	latency time.Duration
	success bool
}

// NewStats creates a Stats tracker with the given rolling window.
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Stats{
		window:  window,
		samples: make(map[string][]outcomeSample),
	}
}

// RecordOutcome records one observed call outcome for a provider.
// Latency may be zero when the transport could not measure it (e.g., a
// connection failure); zero latencies are excluded from the median but still
// count toward the success rate.
func (s *Stats) RecordOutcome(provider string, success bool, latency time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := pruneSamples(s.samples[provider], now, s.window)
	s.samples[provider] = append(pruned, outcomeSample{at: now, latency: latency, success: success})
}

// MedianLatency returns the median of recent latency observations for a
// provider. The second return is false when no latency samples exist in the
// window.
func (s *Stats) MedianLatency(provider string) (time.Duration, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := pruneSamples(s.samples[provider], now, s.window)
	s.samples[provider] = samples

	latencies := make([]time.Duration, 0, len(samples))
	for _, sm := range samples {
		if sm.latency > 0 {
			latencies = append(latencies, sm.latency)
		}
	}
	if len(latencies) == 0 {
		return 0, false
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	mid := len(latencies) / 2
	if len(latencies)%2 == 0 {
		return (latencies[mid-1] + latencies[mid]) / 2, true
	}
	return latencies[mid], true
}

// SuccessRate returns the fraction of recent calls that succeeded (0.0-1.0).
// The second return is false when no outcomes exist in the window.
func (s *Stats) SuccessRate(provider string) (float64, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := pruneSamples(s.samples[provider], now, s.window)
	s.samples[provider] = samples

	if len(samples) == 0 {
		return 0, false
	}

	successes := 0
	for _, sm := range samples {
		if sm.success {
			successes++
		}
	}
	return float64(successes) / float64(len(samples)), true
}

// SampleCount returns the number of outcomes recorded for a provider within
// the window.
func (s *Stats) SampleCount(provider string) int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := pruneSamples(s.samples[provider], now, s.window)
	s.samples[provider] = samples
	return len(samples)
}

// Reset clears all recorded outcomes. Primarily for testing.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = make(map[string][]outcomeSample)
}

// pruneSamples drops samples older than the window.
func pruneSamples(samples []outcomeSample, now time.Time, window time.Duration) []outcomeSample {
	cutoff := now.Add(-window)
	keep := samples[:0]
	for _, sm := range samples {
		if sm.at.After(cutoff) {
			keep = append(keep, sm)
		}
	}
	return keep
}
