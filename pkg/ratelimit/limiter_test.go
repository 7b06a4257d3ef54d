package ratelimit

import (
	"testing"
	"time"

	"mercator-hq/warden/pkg/providers"
)

type stubAdvisor struct {
	alternative string
	ok          bool
}

func (s *stubAdvisor) SuggestFailover(provider string) (string, bool) {
	return s.alternative, s.ok
}

func testCatalog() []providers.Provider {
	return []providers.Provider{
		{ID: "alpha", Tier: 1, TokensPerMinute: 100, TokensPerDay: 1000},
		{ID: "beta", Tier: 3, TokensPerMinute: 500, TokensPerDay: 5000},
		{ID: "gamma", Tier: 5},
	}
}

func testConfig() Config {
	return Config{
		ShortWait:               2 * time.Minute,
		BackoffBase:             time.Second,
		BackoffMax:              time.Minute,
		FailoverAfterRejections: 3,
	}
}

func TestLimiter_CheckBudget_AllowsWithinQuota(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	decision, err := l.CheckBudget("alpha", 60)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Expected allowed, got rejection: %s", decision.Reason)
	}
	if decision.RemainingMinute != 100 {
		t.Errorf("Expected remaining minute 100, got %d", decision.RemainingMinute)
	}
	if decision.RemainingDaily != 1000 {
		t.Errorf("Expected remaining daily 1000, got %d", decision.RemainingDaily)
	}
}

func TestLimiter_CheckBudget_RejectsAfterUsage(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	decision, err := l.CheckBudget("alpha", 60)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("Expected first check allowed, got rejection: %s", decision.Reason)
	}

	l.RecordUsage("alpha", 60)

	decision, err = l.CheckBudget("alpha", 60)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("Expected rejection after consuming 60 of 100")
	}
	if decision.Wait <= 0 && decision.FailoverSuggestion == "" {
		t.Error("Expected a wait or a failover suggestion on rejection")
	}
	if decision.RemainingMinute != 40 {
		t.Errorf("Expected remaining minute 40, got %d", decision.RemainingMinute)
	}
}

func TestLimiter_CheckBudget_FullConsumptionBlocksAnySpend(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	l.RecordUsage("alpha", 100)

	decision, err := l.CheckBudget("alpha", 1)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if decision.Allowed {
		t.Error("Expected rejection with minute budget fully consumed")
	}
	if decision.RemainingMinute != 0 {
		t.Errorf("Expected remaining minute 0, got %d", decision.RemainingMinute)
	}
}

func TestLimiter_CheckBudget_DailyExhaustionSuggestsFailover(t *testing.T) {
	cfg := testConfig()
	cfg.ShortWait = time.Second // day window never rolls over this fast
	l := NewLimiter(cfg, testCatalog(), &stubAdvisor{alternative: "beta", ok: true})

	l.RecordUsage("alpha", 1000)

	decision, err := l.CheckBudget("alpha", 10)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("Expected rejection with daily budget exhausted")
	}
	if decision.Reason != "daily budget exhausted" {
		t.Errorf("Expected daily exhaustion reason, got %q", decision.Reason)
	}
	if decision.Wait > 0 {
		t.Errorf("Expected no wait for daily exhaustion, got %s", decision.Wait)
	}
	if decision.FailoverSuggestion != "beta" {
		t.Errorf("Expected failover suggestion beta, got %q", decision.FailoverSuggestion)
	}
}

func TestLimiter_CheckBudget_ZeroQuotaIsUnlimited(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	decision, err := l.CheckBudget("gamma", 1_000_000)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Expected unlimited provider to allow any spend, got: %s", decision.Reason)
	}
}

func TestLimiter_CheckBudget_UnknownProvider(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	if _, err := l.CheckBudget("nonexistent", 10); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestLimiter_RecordUsage_UnknownProviderIgnored(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	// Must not panic; late reports race config reloads.
	l.RecordUsage("nonexistent", 50)
}

func TestLimiter_RecordRejection_BackoffGrows(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	first := l.RecordRejection("alpha")
	second := l.RecordRejection("alpha")

	if first.Wait <= 0 {
		t.Fatalf("Expected positive backoff, got %s", first.Wait)
	}
	// Base 1s doubles to 2s; jitter adds at most half on top.
	if first.Wait > 1500*time.Millisecond {
		t.Errorf("First backoff too large: %s", first.Wait)
	}
	if second.Wait < 2*time.Second {
		t.Errorf("Expected second backoff >= 2s, got %s", second.Wait)
	}
	if second.Wait > 3*time.Second {
		t.Errorf("Second backoff too large: %s", second.Wait)
	}
}

func TestLimiter_RecordRejection_BackoffCapped(t *testing.T) {
	cfg := testConfig()
	cfg.BackoffMax = 5 * time.Second
	l := NewLimiter(cfg, testCatalog(), nil)

	var advice *RejectionAdvice
	for i := 0; i < 40; i++ {
		advice = l.RecordRejection("alpha")
	}
	// Cap plus at most half jitter.
	if advice.Wait > 7500*time.Millisecond {
		t.Errorf("Expected backoff capped near 5s, got %s", advice.Wait)
	}
}

func TestLimiter_RecordRejection_SuggestsFailoverAfterThree(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), &stubAdvisor{alternative: "beta", ok: true})

	for i := 0; i < 2; i++ {
		advice := l.RecordRejection("alpha")
		if advice.FailoverSuggestion != "" {
			t.Fatalf("Expected no suggestion after %d rejections, got %q", i+1, advice.FailoverSuggestion)
		}
	}

	advice := l.RecordRejection("alpha")
	if advice.FailoverSuggestion != "beta" {
		t.Errorf("Expected failover suggestion after 3 rejections, got %q", advice.FailoverSuggestion)
	}
}

func TestLimiter_Remaining(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	l.RecordUsage("alpha", 30)

	minute, daily, err := l.Remaining("alpha")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if minute != 70 {
		t.Errorf("Expected remaining minute 70, got %d", minute)
	}
	if daily != 970 {
		t.Errorf("Expected remaining daily 970, got %d", daily)
	}
}

func TestLimiter_Snapshot(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	l.RecordUsage("alpha", 25)

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snap))
	}
	alpha, ok := snap["alpha"]
	if !ok {
		t.Fatal("Expected snapshot for alpha")
	}
	if alpha.UsedThisMinute != 25 {
		t.Errorf("Expected used this minute 25, got %d", alpha.UsedThisMinute)
	}
	if alpha.UsedToday != 25 {
		t.Errorf("Expected used today 25, got %d", alpha.UsedToday)
	}
}

func TestLimiter_UpdateQuotas_PreservesSurvivingCounters(t *testing.T) {
	l := NewLimiter(testConfig(), testCatalog(), nil)

	l.RecordUsage("alpha", 40)

	l.UpdateQuotas([]providers.Provider{
		{ID: "alpha", Tier: 1, TokensPerMinute: 200, TokensPerDay: 2000},
		{ID: "delta", Tier: 4, TokensPerMinute: 50},
	})

	minute, _, err := l.Remaining("alpha")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if minute != 160 {
		t.Errorf("Expected remaining minute 160 after quota raise, got %d", minute)
	}

	if _, _, err := l.Remaining("beta"); err == nil {
		t.Error("Expected removed provider to be unknown")
	}
	if _, _, err := l.Remaining("delta"); err != nil {
		t.Errorf("Expected new provider to be known, got %v", err)
	}
}
