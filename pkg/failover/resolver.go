package failover

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/warden/pkg/providers"
)

// Resolver answers "this provider is unusable for this purpose; who next?".
//
// It is built from two static inputs: the provider catalog (which carries
// tiers) and the purpose-to-chain map. Chains are hand-curated from most
// preferred to emergency fallback and are never mutated at runtime; a
// provider that is rate-limited or circuit-open is filtered out at lookup
// time only.
type Resolver struct {
	registry *providers.Registry
	gate     CircuitGate

	mu     sync.RWMutex
	chains map[string][]string
	marks  map[string]Mark
}

// NewResolver creates a resolver over the given catalog and purpose chains.
// The gate may be nil, in which case circuit state is not consulted.
func NewResolver(registry *providers.Registry, chains map[string][]string, gate CircuitGate) *Resolver {
	copied := make(map[string][]string, len(chains))
	for purpose, chain := range chains {
		c := make([]string, len(chain))
		copy(c, chain)
		copied[purpose] = c
	}

	return &Resolver{
		registry: registry,
		gate:     gate,
		chains:   copied,
		marks:    make(map[string]Mark),
	}
}

// Resolve returns the next provider to try after the given one for the
// given workload purpose.
//
// If the purpose has a chain, the search starts after the provider's
// position in it (or at the head when the provider is not listed) and
// returns the first entry that is neither rate-limited nor circuit-open.
// When the chain is exhausted, the search widens to a tier-distance scan
// over the whole catalog: same tier first, then one tier cheaper, then two,
// then anything left. ErrChainExhausted is returned only when every known
// provider is unavailable.
func (r *Resolver) Resolve(provider, purpose string) (string, error) {
	base, ok := r.registry.Get(provider)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	r.mu.RLock()
	chain := r.chains[purpose]
	r.mu.RUnlock()

	if len(chain) > 0 {
		start := 0
		for i, id := range chain {
			if id == provider {
				start = i + 1
				break
			}
		}
		for _, id := range chain[start:] {
			if id != provider && r.available(id) {
				slog.Debug("failover resolved from chain",
					"from", provider,
					"to", id,
					"purpose", purpose,
				)
				return id, nil
			}
		}
	}

	// Chain exhausted (or unknown purpose): widen to a tier-distance scan.
	for dist := 0; dist <= 2; dist++ {
		tier := base.Tier + dist
		if tier > providers.TierMin {
			break
		}
		for _, p := range r.registry.ByTier(tier) {
			if p.ID != provider && r.available(p.ID) {
				slog.Debug("failover resolved by tier distance",
					"from", provider,
					"to", p.ID,
					"tier", tier,
					"distance", dist,
				)
				return p.ID, nil
			}
		}
	}

	// Last resort: anything at all, including more capable tiers.
	for _, p := range r.registry.All() {
		if p.ID != provider && r.available(p.ID) {
			slog.Debug("failover resolved by full scan", "from", provider, "to", p.ID)
			return p.ID, nil
		}
	}

	slog.Warn("failover chain exhausted", "from", provider, "purpose", purpose)
	return "", ErrChainExhausted
}

// SuggestFailover returns an available alternative for the provider without
// a declared purpose, trying the purposes the provider is tagged with. It
// implements the rate limiter's FailoverAdvisor.
func (r *Resolver) SuggestFailover(provider string) (string, bool) {
	base, ok := r.registry.Get(provider)
	if !ok {
		return "", false
	}

	for _, purpose := range base.Purposes {
		if next, err := r.Resolve(provider, purpose); err == nil {
			return next, true
		}
	}

	// No purpose chain produced a target; fall back to a purposeless
	// resolve, which degenerates to the tier scan.
	next, err := r.Resolve(provider, "")
	if err != nil {
		return "", false
	}
	return next, true
}

// MarkRateLimited marks a provider rate-limited for the given cooldown.
// The mark is advisory: chain definitions are untouched, and the provider
// reappears in lookups exactly when the cooldown timestamp passes.
func (r *Resolver) MarkRateLimited(provider string, cooldown time.Duration) {
	now := time.Now()

	r.mu.Lock()
	r.marks[provider] = Mark{
		Provider: provider,
		Until:    now.Add(cooldown),
		MarkedAt: now,
	}
	r.mu.Unlock()

	slog.Info("provider marked rate-limited",
		"provider", provider,
		"cooldown", cooldown,
	)
}

// IsRateLimited reports whether a provider currently carries an unexpired
// rate-limited mark. Expired marks are removed on read.
func (r *Resolver) IsRateLimited(provider string) bool {
	r.mu.RLock()
	mark, ok := r.marks[provider]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().Before(mark.Until) {
		return true
	}

	// Expired; drop it so snapshots stay tidy.
	r.mu.Lock()
	if current, ok := r.marks[provider]; ok && !time.Now().Before(current.Until) {
		delete(r.marks, provider)
	}
	r.mu.Unlock()
	return false
}

// Marks returns all currently active rate-limited marks.
func (r *Resolver) Marks() []Mark {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Mark, 0, len(r.marks))
	for provider, mark := range r.marks {
		if now.Before(mark.Until) {
			result = append(result, mark)
		} else {
			delete(r.marks, provider)
		}
	}
	return result
}

// Chain returns the configured chain for a purpose (nil when unknown).
func (r *Resolver) Chain(purpose string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, ok := r.chains[purpose]
	if !ok {
		return nil
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// UpdateChains replaces the purpose chains from a reloaded configuration.
// Active rate-limited marks survive the swap.
func (r *Resolver) UpdateChains(chains map[string][]string) {
	copied := make(map[string][]string, len(chains))
	for purpose, chain := range chains {
		c := make([]string, len(chain))
		copy(c, chain)
		copied[purpose] = c
	}

	r.mu.Lock()
	r.chains = copied
	r.mu.Unlock()
}

// available reports whether a provider is currently usable: known, not
// rate-limited, and not circuit-open.
func (r *Resolver) available(provider string) bool {
	if _, ok := r.registry.Get(provider); !ok {
		return false
	}
	if r.IsRateLimited(provider) {
		return false
	}
	if r.gate != nil && r.gate.IsOpen(provider) {
		return false
	}
	return true
}
