package governor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/warden/pkg/ratelimit"
)

// BudgetAuthority is the token-budget dependency of the governor. It is
// satisfied by *ratelimit.Limiter.
type BudgetAuthority interface {
	CheckBudget(provider string, estimatedTokens int64) (*ratelimit.Decision, error)
	RecordUsage(provider string, actualTokens int64)
}

// Governor is the single admission authority for agent concurrency slots.
//
// Every acquire passes one serialized decision sequence: stale slots are
// reclaimed first, then the grant cooldown is enforced, then the role's
// concurrency ceiling, then the provider token budget, then the global
// token ceiling. Only a request that clears all five is granted a full
// slot; roles that allow it are demoted to a fallback grant instead of
// being denied.
//
// All mutable state is guarded by a single mutex. Waits (cooldown and
// short budget waits) happen with the mutex released and the decision
// sequence restarted from the top, so a sleeping caller never blocks
// admission of others.
type Governor struct {
	config Config
	roles  map[string]RoleLimits
	budget BudgetAuthority
	logger *slog.Logger

	mu        sync.Mutex
	slots     map[string]*Slot
	lastGrant time.Time

	// aggregate estimated tokens across active slots, maintained
	// incrementally so the global ceiling check is O(1)
	aggregateEstimate int64

	reclaimed int64
}

// New creates a Governor for the given role table and budget authority.
func New(cfg Config, roles map[string]RoleLimits, budget BudgetAuthority, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	rl := make(map[string]RoleLimits, len(roles))
	for name, limits := range roles {
		rl[name] = limits
	}
	return &Governor{
		config: cfg,
		roles:  rl,
		budget: budget,
		logger: logger.With("component", "governor"),
		slots:  make(map[string]*Slot),
	}
}

// AcquireSlot requests an admission slot for one agent invocation.
//
// A nil error with Grant.Granted == false is a normal denial; the error
// return is reserved for unknown roles and context cancellation. The call
// may block up to AcquireTimeout (or the context deadline, whichever is
// sooner) across grant-cooldown and short budget waits.
func (g *Governor) AcquireSlot(ctx context.Context, req AcquireRequest) (*Grant, error) {
	limits, ok := g.roles[req.Role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, req.Role)
	}

	deadline := time.Now().Add(g.config.AcquireTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	budgetWaited := false
	for {
		g.mu.Lock()
		now := time.Now()
		g.reclaimStaleLocked(now)

		// Grant cooldown smooths bursty start storms.
		if wait := g.config.GrantCooldown - now.Sub(g.lastGrant); wait > 0 {
			g.mu.Unlock()
			if err := g.sleep(ctx, wait, deadline); err != nil {
				return &Grant{Reason: "grant cooldown wait exceeded deadline"}, err
			}
			continue
		}

		// Role concurrency ceiling. Fallback grants run on the cheap
		// provider and do not count against the role's full-slot ceiling.
		if g.activeFullLocked(req.Role) >= limits.MaxConcurrent {
			if limits.AllowFallback && limits.FallbackProvider != "" {
				grant := g.grantLocked(req, limits.FallbackProvider, true, "role ceiling reached")
				g.mu.Unlock()
				return grant, nil
			}
			g.mu.Unlock()
			return &Grant{Reason: "role ceiling reached"}, nil
		}

		// Provider token budget. A rejection that suggests a short wait is
		// honored once; a rejection that names a failover target
		// substitutes it transparently.
		provider := limits.DefaultProvider
		decision, err := g.budget.CheckBudget(provider, req.EstimatedTokens)
		if err != nil {
			g.mu.Unlock()
			return nil, fmt.Errorf("budget check for role %q: %w", req.Role, err)
		}
		if !decision.Allowed && decision.FailoverSuggestion != "" {
			if alt, err := g.budget.CheckBudget(decision.FailoverSuggestion, req.EstimatedTokens); err == nil && alt.Allowed {
				provider = decision.FailoverSuggestion
				decision = alt
			}
		}
		if !decision.Allowed {
			if !budgetWaited && decision.Wait > 0 && now.Add(decision.Wait).Before(deadline) {
				budgetWaited = true
				g.mu.Unlock()
				if err := g.sleep(ctx, decision.Wait, deadline); err != nil {
					return &Grant{Reason: "budget wait exceeded deadline"}, err
				}
				continue
			}
			if limits.AllowFallback && limits.FallbackProvider != "" {
				grant := g.grantLocked(req, limits.FallbackProvider, true, "budget exhausted: "+decision.Reason)
				g.mu.Unlock()
				return grant, nil
			}
			g.mu.Unlock()
			return &Grant{Reason: "budget exhausted: " + decision.Reason}, nil
		}

		// Global token ceiling across all active slots.
		if g.config.GlobalTokenCeiling > 0 &&
			g.aggregateEstimate+req.EstimatedTokens > g.config.GlobalTokenCeiling {
			if limits.AllowFallback && limits.FallbackProvider != "" {
				grant := g.grantLocked(req, limits.FallbackProvider, true, "global token ceiling reached")
				g.mu.Unlock()
				return grant, nil
			}
			g.mu.Unlock()
			return &Grant{Reason: "global token ceiling reached"}, nil
		}

		grant := g.grantLocked(req, provider, false, "granted")
		g.mu.Unlock()
		return grant, nil
	}
}

// ReleaseSlot returns a slot and reports the tokens actually consumed to
// the budget authority. Releasing an unknown or already-released slot is
// a no-op, so double release after a stale reclaim is harmless.
func (g *Governor) ReleaseSlot(slotID string, actualTokens int64) {
	g.mu.Lock()
	slot, ok := g.slots[slotID]
	if ok {
		delete(g.slots, slotID)
		g.aggregateEstimate -= slot.EstimatedTokens
	}
	g.mu.Unlock()

	if !ok {
		return
	}
	if actualTokens > 0 {
		g.budget.RecordUsage(slot.AssignedProvider, actualTokens)
	}
	g.logger.Debug("slot released",
		"slot_id", slotID,
		"role", slot.Role,
		"provider", slot.AssignedProvider,
		"actual_tokens", actualTokens)
}

// ReclaimStale force-releases slots older than StaleSlotTimeout and
// returns how many were reclaimed. It also runs lazily on every acquire;
// this method exists for the periodic sweep.
func (g *Governor) ReclaimStale() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reclaimStaleLocked(time.Now())
}

// ActiveSlots returns a snapshot of all currently held slots ordered by
// start time.
func (g *Governor) ActiveSlots() []Slot {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Slot, 0, len(g.slots))
	for _, slot := range g.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SlotID < out[j].SlotID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Occupancy reports per-role slot usage for every configured role.
func (g *Governor) Occupancy() []RoleOccupancy {
	g.mu.Lock()
	defer g.mu.Unlock()

	byRole := make(map[string]*RoleOccupancy, len(g.roles))
	for name, limits := range g.roles {
		byRole[name] = &RoleOccupancy{Role: name, Ceiling: limits.MaxConcurrent}
	}
	for _, slot := range g.slots {
		occ, ok := byRole[slot.Role]
		if !ok {
			occ = &RoleOccupancy{Role: slot.Role}
			byRole[slot.Role] = occ
		}
		if slot.Fallback {
			occ.Fallback++
		} else {
			occ.Active++
		}
	}

	out := make([]RoleOccupancy, 0, len(byRole))
	for _, occ := range byRole {
		out = append(out, *occ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// AggregateEstimate returns the summed estimated tokens of active slots.
func (g *Governor) AggregateEstimate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aggregateEstimate
}

// ReclaimedTotal returns the cumulative count of stale-reclaimed slots.
func (g *Governor) ReclaimedTotal() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reclaimed
}

// UpdateRoles swaps the role table on configuration reload. Slots already
// granted under the old table remain valid until released.
func (g *Governor) UpdateRoles(roles map[string]RoleLimits) {
	rl := make(map[string]RoleLimits, len(roles))
	for name, limits := range roles {
		rl[name] = limits
	}
	g.mu.Lock()
	g.roles = rl
	g.mu.Unlock()
}

func (g *Governor) grantLocked(req AcquireRequest, provider string, fallback bool, reason string) *Grant {
	slot := &Slot{
		SlotID:           uuid.NewString(),
		CallerID:         req.CallerID,
		Role:             req.Role,
		AssignedProvider: provider,
		EstimatedTokens:  req.EstimatedTokens,
		StartedAt:        time.Now(),
		Fallback:         fallback,
	}
	g.slots[slot.SlotID] = slot
	g.aggregateEstimate += slot.EstimatedTokens
	g.lastGrant = slot.StartedAt

	g.logger.Debug("slot granted",
		"slot_id", slot.SlotID,
		"role", slot.Role,
		"provider", provider,
		"fallback", fallback,
		"reason", reason)

	return &Grant{
		Granted:        true,
		SlotID:         slot.SlotID,
		Provider:       provider,
		ForcedFallback: fallback,
		Reason:         reason,
	}
}

func (g *Governor) activeFullLocked(role string) int {
	n := 0
	for _, slot := range g.slots {
		if slot.Role == role && !slot.Fallback {
			n++
		}
	}
	return n
}

func (g *Governor) reclaimStaleLocked(now time.Time) int {
	if g.config.StaleSlotTimeout <= 0 {
		return 0
	}
	n := 0
	for id, slot := range g.slots {
		if now.Sub(slot.StartedAt) >= g.config.StaleSlotTimeout {
			delete(g.slots, id)
			g.aggregateEstimate -= slot.EstimatedTokens
			g.reclaimed++
			n++
			g.logger.Warn("stale slot reclaimed",
				"slot_id", id,
				"role", slot.Role,
				"provider", slot.AssignedProvider,
				"age", now.Sub(slot.StartedAt).Round(time.Second))
		}
	}
	return n
}

// sleep blocks for d, truncated to the remaining deadline, honoring
// context cancellation. A deadline truncation returns an error so the
// caller stops retrying.
func (g *Governor) sleep(ctx context.Context, d time.Duration, deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining <= 0 || d > remaining {
		return context.DeadlineExceeded
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
