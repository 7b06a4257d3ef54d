package providers

import (
	"fmt"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/config"
)

// Registry holds the static provider catalog loaded from configuration.
// It is read-heavy: every admission decision consults it, while writes only
// happen on configuration reload. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry builds a registry from the configured provider map.
func NewRegistry(cfgs map[string]config.ProviderConfig) *Registry {
	r := &Registry{}
	r.replace(cfgs)
	return r
}

// Get returns the provider with the given ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	return p, ok
}

// MustGet returns the provider with the given ID or an error naming it.
// Unknown IDs are a configuration error, not a runtime condition.
func (r *Registry) MustGet(id string) (Provider, error) {
	p, ok := r.Get(id)
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q", id)
	}
	return p, nil
}

// All returns every registered provider, sorted by ID for deterministic
// iteration.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// IDs returns every registered provider ID, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByTier returns all providers at the given tier, sorted by ID.
func (r *Registry) ByTier(tier int) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Provider
	for _, p := range r.providers {
		if p.Tier == tier {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Update replaces the catalog from a reloaded configuration. Components
// holding Provider values keep their copies; the next lookup observes the
// new catalog.
func (r *Registry) Update(cfgs map[string]config.ProviderConfig) {
	r.replace(cfgs)
}

func (r *Registry) replace(cfgs map[string]config.ProviderConfig) {
	providers := make(map[string]Provider, len(cfgs))
	for id, cfg := range cfgs {
		purposes := make([]string, len(cfg.Purposes))
		copy(purposes, cfg.Purposes)

		providers[id] = Provider{
			ID:              id,
			Tier:            cfg.Tier,
			Purposes:        purposes,
			CostPerMTokens:  cfg.CostPerMTokens,
			TokensPerMinute: cfg.TokensPerMinute,
			TokensPerDay:    cfg.TokensPerDay,
		}
	}

	r.mu.Lock()
	r.providers = providers
	r.mu.Unlock()
}
