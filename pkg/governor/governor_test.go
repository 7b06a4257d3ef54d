package governor

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/warden/pkg/ratelimit"
)

// stubBudget is a scripted BudgetAuthority.
type stubBudget struct {
	decisions map[string]*ratelimit.Decision
	usage     map[string]int64
}

func newStubBudget() *stubBudget {
	return &stubBudget{
		decisions: make(map[string]*ratelimit.Decision),
		usage:     make(map[string]int64),
	}
}

func (s *stubBudget) CheckBudget(provider string, estimatedTokens int64) (*ratelimit.Decision, error) {
	if d, ok := s.decisions[provider]; ok {
		return d, nil
	}
	return &ratelimit.Decision{Allowed: true}, nil
}

func (s *stubBudget) RecordUsage(provider string, actualTokens int64) {
	s.usage[provider] += actualTokens
}

func testGovConfig() Config {
	return Config{
		StaleSlotTimeout: time.Minute,
		GrantCooldown:    0,
		AcquireTimeout:   time.Second,
	}
}

func testRoles() map[string]RoleLimits {
	return map[string]RoleLimits{
		"orchestrator": {
			MaxConcurrent:    1,
			Purpose:          "reasoning",
			DefaultProvider:  "alpha",
			FallbackProvider: "gamma",
			AllowFallback:    true,
		},
		"worker": {
			MaxConcurrent:   2,
			Purpose:         "coding",
			DefaultProvider: "beta",
			AllowFallback:   false,
		},
	}
}

func TestGovernor_AcquireGrantsSlot(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)

	grant, err := g.AcquireSlot(context.Background(), AcquireRequest{
		CallerID:        "agent-1",
		Role:            "worker",
		EstimatedTokens: 5000,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !grant.Granted {
		t.Fatalf("Expected grant, got denial: %s", grant.Reason)
	}
	if grant.Provider != "beta" {
		t.Errorf("Expected beta, got %s", grant.Provider)
	}
	if grant.ForcedFallback {
		t.Error("Expected a full grant")
	}
	if grant.SlotID == "" {
		t.Error("Expected a slot ID")
	}
	if got := g.AggregateEstimate(); got != 5000 {
		t.Errorf("Expected aggregate estimate 5000, got %d", got)
	}
}

func TestGovernor_UnknownRole(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)

	_, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "mystery"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Expected ErrUnknownRole, got %v", err)
	}
}

func TestGovernor_RoleCeilingForcesFallback(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	first, err := g.AcquireSlot(ctx, AcquireRequest{CallerID: "a", Role: "orchestrator", EstimatedTokens: 1000})
	if err != nil || !first.Granted {
		t.Fatalf("Expected first grant, got %v / %+v", err, first)
	}

	second, err := g.AcquireSlot(ctx, AcquireRequest{CallerID: "b", Role: "orchestrator", EstimatedTokens: 1000})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.Granted {
		t.Fatalf("Expected fallback grant, got denial: %s", second.Reason)
	}
	if !second.ForcedFallback {
		t.Error("Expected ForcedFallback true at role ceiling")
	}
	if second.Provider != "gamma" {
		t.Errorf("Expected fallback provider gamma, got %s", second.Provider)
	}
}

func TestGovernor_RoleCeilingDeniesWithoutFallback(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		grant, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
		if err != nil || !grant.Granted {
			t.Fatalf("Expected grant %d, got %v / %+v", i+1, err, grant)
		}
	}

	third, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if third.Granted {
		t.Error("Expected denial at worker ceiling")
	}
	if third.Reason != "role ceiling reached" {
		t.Errorf("Expected role ceiling reason, got %q", third.Reason)
	}
}

func TestGovernor_FallbackSlotsDoNotCountAgainstCeiling(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	full, _ := g.AcquireSlot(ctx, AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})
	fb, _ := g.AcquireSlot(ctx, AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})
	if !fb.ForcedFallback {
		t.Fatal("Expected second grant to be fallback")
	}

	// Releasing the full slot frees the ceiling even though the fallback
	// slot is still held.
	g.ReleaseSlot(full.SlotID, 0)

	again, err := g.AcquireSlot(ctx, AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if again.ForcedFallback {
		t.Error("Expected a full grant after releasing the full slot")
	}
}

func TestGovernor_BudgetDenialFallsBack(t *testing.T) {
	budget := newStubBudget()
	budget.decisions["alpha"] = &ratelimit.Decision{Allowed: false, Reason: "minute budget exhausted"}
	g := New(testGovConfig(), testRoles(), budget, nil)

	grant, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !grant.Granted || !grant.ForcedFallback {
		t.Fatalf("Expected fallback grant on budget denial, got %+v", grant)
	}
	if grant.Provider != "gamma" {
		t.Errorf("Expected gamma, got %s", grant.Provider)
	}
}

func TestGovernor_BudgetDenialWithFailoverSuggestion(t *testing.T) {
	budget := newStubBudget()
	budget.decisions["beta"] = &ratelimit.Decision{
		Allowed:            false,
		Reason:             "daily budget exhausted",
		FailoverSuggestion: "delta",
	}
	g := New(testGovConfig(), testRoles(), budget, nil)

	grant, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 100})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !grant.Granted {
		t.Fatalf("Expected grant via suggested provider, got denial: %s", grant.Reason)
	}
	if grant.Provider != "delta" {
		t.Errorf("Expected delta, got %s", grant.Provider)
	}
	if grant.ForcedFallback {
		t.Error("Expected substitution, not a fallback grant")
	}
}

func TestGovernor_BudgetShortWaitHonoredOnce(t *testing.T) {
	budget := newStubBudget()
	budget.decisions["beta"] = &ratelimit.Decision{
		Allowed: false,
		Reason:  "minute budget exhausted",
		Wait:    50 * time.Millisecond,
	}
	g := New(testGovConfig(), testRoles(), budget, nil)

	start := time.Now()
	grant, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 100})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if grant.Granted {
		t.Error("Expected denial when the budget stays exhausted after the wait")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least one 50ms budget wait, elapsed %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Expected a single wait, elapsed %v", elapsed)
	}
}

func TestGovernor_GlobalTokenCeiling(t *testing.T) {
	cfg := testGovConfig()
	cfg.GlobalTokenCeiling = 10000
	g := New(cfg, testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	first, _ := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 8000})
	if !first.Granted {
		t.Fatalf("Expected first grant, got %s", first.Reason)
	}

	second, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 5000})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second.Granted {
		t.Error("Expected denial over the global token ceiling")
	}
	if second.Reason != "global token ceiling reached" {
		t.Errorf("Expected ceiling reason, got %q", second.Reason)
	}
}

func TestGovernor_GrantCooldown(t *testing.T) {
	cfg := testGovConfig()
	cfg.GrantCooldown = 50 * time.Millisecond
	g := New(cfg, testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	start := time.Now()
	g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	second, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	elapsed := time.Since(start)

	if err != nil || !second.Granted {
		t.Fatalf("Expected second grant, got %v / %+v", err, second)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected the second acquire to wait out the cooldown, elapsed %v", elapsed)
	}
}

func TestGovernor_ReleaseReportsUsage(t *testing.T) {
	budget := newStubBudget()
	g := New(testGovConfig(), testRoles(), budget, nil)

	grant, _ := g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 5000})
	g.ReleaseSlot(grant.SlotID, 4200)

	if budget.usage["beta"] != 4200 {
		t.Errorf("Expected 4200 tokens reported for beta, got %d", budget.usage["beta"])
	}
	if got := g.AggregateEstimate(); got != 0 {
		t.Errorf("Expected aggregate estimate 0 after release, got %d", got)
	}
}

func TestGovernor_ReleaseIsIdempotent(t *testing.T) {
	budget := newStubBudget()
	g := New(testGovConfig(), testRoles(), budget, nil)

	grant, _ := g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 1000})
	g.ReleaseSlot(grant.SlotID, 500)
	g.ReleaseSlot(grant.SlotID, 500)
	g.ReleaseSlot("no-such-slot", 500)

	if budget.usage["beta"] != 500 {
		t.Errorf("Expected usage recorded once, got %d", budget.usage["beta"])
	}
	if got := g.AggregateEstimate(); got != 0 {
		t.Errorf("Expected aggregate estimate 0, got %d", got)
	}
}

func TestGovernor_ReclaimStale(t *testing.T) {
	cfg := testGovConfig()
	cfg.StaleSlotTimeout = 50 * time.Millisecond
	g := New(cfg, testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	time.Sleep(60 * time.Millisecond)

	if n := g.ReclaimStale(); n != 1 {
		t.Errorf("Expected 1 reclaimed slot, got %d", n)
	}
	if len(g.ActiveSlots()) != 0 {
		t.Error("Expected no active slots after reclaim")
	}
	if g.ReclaimedTotal() != 1 {
		t.Errorf("Expected reclaimed total 1, got %d", g.ReclaimedTotal())
	}
}

func TestGovernor_StaleReclaimFreesCeiling(t *testing.T) {
	cfg := testGovConfig()
	cfg.StaleSlotTimeout = 50 * time.Millisecond
	roles := testRoles()
	g := New(cfg, roles, newStubBudget(), nil)
	ctx := context.Background()

	// Fill the worker ceiling, let the slots go stale, then acquire again:
	// the lazy reclaim inside AcquireSlot must free the ceiling.
	g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	time.Sleep(60 * time.Millisecond)

	grant, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !grant.Granted {
		t.Errorf("Expected grant after stale reclaim, got denial: %s", grant.Reason)
	}
}

func TestGovernor_Occupancy(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)
	ctx := context.Background()

	g.AcquireSlot(ctx, AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})
	g.AcquireSlot(ctx, AcquireRequest{Role: "orchestrator", EstimatedTokens: 100})

	occ := g.Occupancy()
	if len(occ) != 2 {
		t.Fatalf("Expected 2 roles, got %d", len(occ))
	}
	// Sorted by role name: orchestrator before worker.
	if occ[0].Role != "orchestrator" {
		t.Fatalf("Expected orchestrator first, got %s", occ[0].Role)
	}
	if occ[0].Active != 1 || occ[0].Fallback != 1 {
		t.Errorf("Expected 1 active + 1 fallback, got %d/%d", occ[0].Active, occ[0].Fallback)
	}
	if occ[0].Ceiling != 1 {
		t.Errorf("Expected ceiling 1, got %d", occ[0].Ceiling)
	}
}

func TestGovernor_AcquireHonorsContextCancellation(t *testing.T) {
	cfg := testGovConfig()
	cfg.GrantCooldown = time.Second
	cfg.AcquireTimeout = 10 * time.Second
	g := New(cfg, testRoles(), newStubBudget(), nil)

	// First grant starts the cooldown clock.
	g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.AcquireSlot(ctx, AcquireRequest{Role: "worker", EstimatedTokens: 100})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestGovernor_UpdateRoles(t *testing.T) {
	g := New(testGovConfig(), testRoles(), newStubBudget(), nil)

	g.UpdateRoles(map[string]RoleLimits{
		"worker": {MaxConcurrent: 1, DefaultProvider: "beta"},
	})

	if _, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "orchestrator"}); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Expected ErrUnknownRole for removed role, got %v", err)
	}
	grant, err := g.AcquireSlot(context.Background(), AcquireRequest{Role: "worker", EstimatedTokens: 100})
	if err != nil || !grant.Granted {
		t.Errorf("Expected surviving role to grant, got %v / %+v", err, grant)
	}
}
