package providers

import (
	"testing"

	"mercator-hq/warden/pkg/config"
)

func testCatalog() map[string]config.ProviderConfig {
	return map[string]config.ProviderConfig{
		"alpha": {
			Tier:           1,
			Purposes:       []string{"reasoning"},
			CostPerMTokens: 15.0,
		},
		"beta": {
			Tier:           3,
			Purposes:       []string{"reasoning", "coding"},
			CostPerMTokens: 2.0,
		},
		"gamma": {
			Tier:           3,
			Purposes:       []string{"coding"},
			CostPerMTokens: 0.5,
		},
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(testCatalog())

	p, ok := r.Get("alpha")
	if !ok {
		t.Fatal("Expected alpha")
	}
	if p.Tier != 1 || p.CostPerMTokens != 15.0 {
		t.Errorf("Expected tier 1 at $15/M, got %+v", p)
	}

	if _, ok := r.Get("delta"); ok {
		t.Error("Expected miss for unknown provider")
	}
}

func TestRegistry_MustGet(t *testing.T) {
	r := NewRegistry(testCatalog())

	if _, err := r.MustGet("alpha"); err != nil {
		t.Errorf("Expected alpha, got %v", err)
	}
	if _, err := r.MustGet("delta"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	r := NewRegistry(testCatalog())

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(all))
	}
	want := []string{"alpha", "beta", "gamma"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("Expected %s at index %d, got %s", id, i, all[i].ID)
		}
	}
}

func TestRegistry_ByTier(t *testing.T) {
	r := NewRegistry(testCatalog())

	tier3 := r.ByTier(3)
	if len(tier3) != 2 {
		t.Fatalf("Expected 2 tier-3 providers, got %d", len(tier3))
	}
	if tier3[0].ID != "beta" || tier3[1].ID != "gamma" {
		t.Errorf("Expected beta, gamma; got %s, %s", tier3[0].ID, tier3[1].ID)
	}
	if got := r.ByTier(2); len(got) != 0 {
		t.Errorf("Expected no tier-2 providers, got %d", len(got))
	}
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry(testCatalog())

	r.Update(map[string]config.ProviderConfig{
		"delta": {Tier: 2, CostPerMTokens: 5.0},
	})

	if _, ok := r.Get("alpha"); ok {
		t.Error("Expected alpha removed after update")
	}
	if _, ok := r.Get("delta"); !ok {
		t.Error("Expected delta after update")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 provider, got %d", r.Len())
	}
}

func TestProvider_ServesPurpose(t *testing.T) {
	r := NewRegistry(testCatalog())
	beta, _ := r.Get("beta")

	if !beta.ServesPurpose("coding") {
		t.Error("Expected beta to serve coding")
	}
	if beta.ServesPurpose("embedding") {
		t.Error("Expected beta not to serve embedding")
	}
}

func TestProvider_TokensPerDollar(t *testing.T) {
	r := NewRegistry(testCatalog())

	beta, _ := r.Get("beta")
	if got := beta.TokensPerDollar(); got != 500_000 {
		t.Errorf("Expected 500000 tokens/$, got %.0f", got)
	}

	free := Provider{CostPerMTokens: 0}
	if got := free.TokensPerDollar(); got != 0 {
		t.Errorf("Expected 0 for unpriced provider, got %.0f", got)
	}
}
