package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  enabled: true
  listen_address: "127.0.0.1:9090"

providers:
  claude-opus:
    tier: 1
    purposes: ["orchestrator", "reasoning"]
    cost_per_mtokens: 15.0
    tokens_per_minute: 80000
    tokens_per_day: 2000000
  gpt-4o:
    tier: 2
    purposes: ["reasoning", "coding"]
    cost_per_mtokens: 5.0
  haiku:
    tier: 5
    purposes: ["orchestrator", "reasoning", "coding"]
    cost_per_mtokens: 0.8

chains:
  orchestrator: ["claude-opus", "haiku"]
  reasoning: ["claude-opus", "gpt-4o", "haiku"]
  coding: ["gpt-4o", "haiku"]

roles:
  orchestrator:
    max_concurrent: 1
    purpose: "orchestrator"
    default_provider: "claude-opus"
    fallback_provider: "haiku"
    allow_fallback: true
  coder:
    max_concurrent: 4
    purpose: "coding"
    default_provider: "gpt-4o"

governor:
  stale_slot_timeout: 10m
  grant_cooldown: 2s

breaker:
  failure_threshold: 5
  recovery_timeout: 30s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Expected config written, got %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Expected config, got error %v", err)
	}

	if len(cfg.Providers) != 3 {
		t.Errorf("Expected 3 providers, got %d", len(cfg.Providers))
	}
	opus := cfg.Providers["claude-opus"]
	if opus.Tier != 1 {
		t.Errorf("Expected tier 1, got %d", opus.Tier)
	}
	if opus.TokensPerMinute != 80000 {
		t.Errorf("Expected 80000 tokens/minute, got %d", opus.TokensPerMinute)
	}
	if len(cfg.Chains["reasoning"]) != 3 {
		t.Errorf("Expected 3 reasoning chain entries, got %d", len(cfg.Chains["reasoning"]))
	}
	if !cfg.Roles["orchestrator"].AllowFallback {
		t.Error("Expected orchestrator to allow fallback")
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Expected config, got error %v", err)
	}

	if cfg.Limiter.ShortWait != 10*time.Second {
		t.Errorf("Expected default short_wait 10s, got %s", cfg.Limiter.ShortWait)
	}
	if cfg.Limiter.FailoverAfterRejections != 3 {
		t.Errorf("Expected default failover_after_rejections 3, got %d", cfg.Limiter.FailoverAfterRejections)
	}
	if cfg.Selector.Strategy != "balanced" {
		t.Errorf("Expected default strategy balanced, got %q", cfg.Selector.Strategy)
	}
	sum := cfg.Selector.Weights.Cost + cfg.Selector.Weights.Speed +
		cfg.Selector.Weights.Reliability + cfg.Selector.Weights.Capability
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("Expected default weights to sum to 1.0, got %.3f", sum)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Expected metrics enabled by default")
	}
	if cfg.Governor.SweepInterval != time.Minute {
		t.Errorf("Expected default sweep interval 1m, got %s", cfg.Governor.SweepInterval)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/warden.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "providers: [not a map")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_SERVER_LISTEN_ADDRESS", "0.0.0.0:8080")
	t.Setenv("WARDEN_GOVERNOR_GRANT_COOLDOWN", "5s")
	t.Setenv("WARDEN_SELECTOR_STRATEGY", "cost")
	t.Setenv("WARDEN_LOG_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Expected config, got error %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("Expected overridden listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Governor.GrantCooldown != 5*time.Second {
		t.Errorf("Expected overridden grant cooldown 5s, got %s", cfg.Governor.GrantCooldown)
	}
	if cfg.Selector.Strategy != "cost" {
		t.Errorf("Expected overridden strategy cost, got %q", cfg.Selector.Strategy)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected overridden log level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("WARDEN_SELECTOR_STRATEGY", "cheapest")

	_, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err == nil {
		t.Error("Expected validation error for invalid strategy override")
	}
}

func baseConfig() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			"alpha": {Tier: 1, CostPerMTokens: 15.0},
			"gamma": {Tier: 5, CostPerMTokens: 0.5},
		},
		Chains: map[string][]string{
			"reasoning": {"alpha", "gamma"},
		},
		Roles: map[string]RoleConfig{
			"orchestrator": {
				MaxConcurrent:   1,
				Purpose:         "reasoning",
				DefaultProvider: "alpha",
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(baseConfig()); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidate_NoProviders(t *testing.T) {
	cfg := baseConfig()
	cfg.Providers = nil

	if err := Validate(cfg); err == nil {
		t.Error("Expected error with no providers")
	}
}

func TestValidate_TierOutOfRange(t *testing.T) {
	cfg := baseConfig()
	cfg.Providers["alpha"] = ProviderConfig{Tier: 6, CostPerMTokens: 1.0}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "tier") {
		t.Errorf("Expected tier error, got %v", err)
	}
}

func TestValidate_DailyQuotaSmallerThanMinute(t *testing.T) {
	cfg := baseConfig()
	cfg.Providers["alpha"] = ProviderConfig{
		Tier:            1,
		CostPerMTokens:  15.0,
		TokensPerMinute: 1000,
		TokensPerDay:    500,
	}

	if err := Validate(cfg); err == nil {
		t.Error("Expected error when daily quota is smaller than minute quota")
	}
}

func TestValidate_ChainReferencesUnknownProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.Chains["reasoning"] = []string{"alpha", "delta"}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "delta") {
		t.Errorf("Expected unknown provider error, got %v", err)
	}
}

func TestValidate_ChainListsProviderTwice(t *testing.T) {
	cfg := baseConfig()
	cfg.Chains["reasoning"] = []string{"alpha", "alpha"}

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for duplicate chain entry")
	}
}

func TestValidate_RoleReferencesUnknownPurpose(t *testing.T) {
	cfg := baseConfig()
	cfg.Roles["orchestrator"] = RoleConfig{
		MaxConcurrent:   1,
		Purpose:         "embedding",
		DefaultProvider: "alpha",
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "embedding") {
		t.Errorf("Expected unknown purpose error, got %v", err)
	}
}

func TestValidate_FallbackRequiredWhenAllowed(t *testing.T) {
	cfg := baseConfig()
	cfg.Roles["orchestrator"] = RoleConfig{
		MaxConcurrent:   1,
		Purpose:         "reasoning",
		DefaultProvider: "alpha",
		AllowFallback:   true,
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "fallback_provider") {
		t.Errorf("Expected missing fallback_provider error, got %v", err)
	}
}

func TestValidate_StaleSlotTimeoutCoversRecovery(t *testing.T) {
	cfg := baseConfig()
	cfg.Breaker.RecoveryTimeout = time.Hour
	cfg.Governor.StaleSlotTimeout = time.Minute

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "stale_slot_timeout") {
		t.Errorf("Expected stale_slot_timeout error, got %v", err)
	}

	cfg.Governor.StaleSlotTimeout = time.Hour
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected equal timeouts to validate, got %v", err)
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := baseConfig()
	cfg.Selector.Weights = WeightsConfig{Cost: 0.5, Speed: 0.5, Reliability: 0.5, Capability: 0.5}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "sum to 1.0") {
		t.Errorf("Expected weights sum error, got %v", err)
	}
}

func TestValidate_BadListenAddress(t *testing.T) {
	cfg := baseConfig()
	cfg.Server.ListenAddress = "not-an-address"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for invalid listen address")
	}
}

func TestValidate_JournalSQLiteRequiresPath(t *testing.T) {
	cfg := baseConfig()
	cfg.Journal.Enabled = true
	cfg.Journal.Backend = "sqlite"
	cfg.Journal.Path = ""

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for sqlite journal without path")
	}
}
