package breaker

import "sync"

// Manager owns one Breaker per provider. The map itself is guarded by a
// read-write mutex; individual breakers carry their own locks, so gating
// different providers never contends.
type Manager struct {
	config Config

	mu       sync.RWMutex
	breakers map[string]*Breaker

	onStateChange func(provider string, from, to State)
}

// NewManager creates a manager that lazily materializes a breaker per
// provider using the shared configuration.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config:   cfg,
		breakers: make(map[string]*Breaker),
	}
}

// OnStateChange sets a callback applied to every breaker, existing and
// future.
func (m *Manager) OnStateChange(fn func(provider string, from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onStateChange = fn
	for _, b := range m.breakers {
		b.OnStateChange(fn)
	}
}

// CanExecute reports whether the provider's circuit admits a request now.
func (m *Manager) CanExecute(provider string) bool {
	return m.get(provider).CanExecute()
}

// RecordSuccess records a successful call against the provider's breaker.
func (m *Manager) RecordSuccess(provider string) {
	m.get(provider).RecordSuccess()
}

// RecordFailure records a failed call against the provider's breaker.
func (m *Manager) RecordFailure(provider string) {
	m.get(provider).RecordFailure()
}

// State returns the provider's current circuit state.
func (m *Manager) State(provider string) State {
	return m.get(provider).State()
}

// IsOpen reports whether the provider's circuit currently rejects traffic.
// An open circuit past its recovery timeout reads as admissible again, via
// the breaker's lazy HALF_OPEN transition.
func (m *Manager) IsOpen(provider string) bool {
	return m.get(provider).IsOpen()
}

// Snapshot returns a point-in-time view of every breaker.
func (m *Manager) Snapshot() map[string]Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Record, len(m.breakers))
	for provider, b := range m.breakers {
		result[provider] = b.Snapshot()
	}
	return result
}

// Reset resets every breaker to CLOSED. Primarily for testing.
func (m *Manager) Reset() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.breakers {
		b.Reset()
	}
}

// get returns the breaker for a provider, creating it on first use.
func (m *Manager) get(provider string) *Breaker {
	m.mu.RLock()
	b, ok := m.breakers[provider]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock.
	if b, ok := m.breakers[provider]; ok {
		return b
	}

	b = New(provider, m.config)
	if m.onStateChange != nil {
		b.OnStateChange(m.onStateChange)
	}
	m.breakers[provider] = b
	return b
}
