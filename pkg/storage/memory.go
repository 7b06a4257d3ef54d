package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access.
type MemoryBackend struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// MaxEntries is the maximum number of journal entries to retain.
	// Oldest entries are evicted when this limit is reached.
	// Default: 100,000
	MaxEntries int
}

// NewMemoryBackend creates a new in-memory journal backend with default
// settings.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{MaxEntries: 100000})
}

// NewMemoryBackendWithConfig creates a new in-memory backend with custom
// configuration.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100000
	}
	return &MemoryBackend{maxEntries: cfg.MaxEntries}
}

// Append stores the batch, evicting the oldest entries if the cap is
// exceeded.
func (m *MemoryBackend) Append(_ context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entries...)
	if over := len(m.entries) - m.maxEntries; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	return nil
}

// Query returns matching entries oldest first.
func (m *MemoryBackend) Query(_ context.Context, provider string, from, to time.Time) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if provider != "" && e.Provider != provider {
			continue
		}
		if e.TakenAt.Before(from) || e.TakenAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Cleanup removes entries taken before olderThan.
func (m *MemoryBackend) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	deleted := 0
	for _, e := range m.entries {
		if e.TakenAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// Close releases the backend. The memory backend holds no external
// resources, so Close only makes reuse an error-free no-op.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}
