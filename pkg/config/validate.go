package config

import (
	"fmt"
	"math"
	"net"
	"strings"
)

// Validate checks the configuration for errors and cross-reference
// consistency. It returns an error describing the first problem found.
//
// Validation enforces the invariants the admission layer depends on:
// every provider referenced by a chain or role exists, tiers are in range,
// and the stale-slot timeout covers the circuit recovery timeout.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateProviders(cfg); err != nil {
		return err
	}
	if err := validateChains(cfg); err != nil {
		return err
	}
	if err := validateRoles(cfg); err != nil {
		return err
	}
	if err := validateBreaker(&cfg.Breaker); err != nil {
		return err
	}
	if err := validateGovernor(cfg); err != nil {
		return err
	}
	if err := validateSelector(&cfg.Selector); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	if err := validateJournal(&cfg.Journal); err != nil {
		return err
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not a valid host:port: %w", cfg.ListenAddress, err)
	}
	return nil
}

func validateProviders(cfg *Config) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for name, p := range cfg.Providers {
		if p.Tier < 1 || p.Tier > 5 {
			return fmt.Errorf("provider %q: tier must be 1-5, got %d", name, p.Tier)
		}
		if p.CostPerMTokens <= 0 {
			return fmt.Errorf("provider %q: cost_per_mtokens must be > 0", name)
		}
		if p.TokensPerMinute < 0 {
			return fmt.Errorf("provider %q: tokens_per_minute must be >= 0", name)
		}
		if p.TokensPerDay < 0 {
			return fmt.Errorf("provider %q: tokens_per_day must be >= 0", name)
		}
		if p.TokensPerMinute > 0 && p.TokensPerDay > 0 && p.TokensPerDay < p.TokensPerMinute {
			return fmt.Errorf("provider %q: tokens_per_day (%d) is smaller than tokens_per_minute (%d)",
				name, p.TokensPerDay, p.TokensPerMinute)
		}
	}
	return nil
}

func validateChains(cfg *Config) error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one failover chain must be configured")
	}

	for purpose, chain := range cfg.Chains {
		if len(chain) == 0 {
			return fmt.Errorf("chain %q is empty", purpose)
		}
		seen := make(map[string]bool, len(chain))
		for _, provider := range chain {
			if _, ok := cfg.Providers[provider]; !ok {
				return fmt.Errorf("chain %q references unknown provider %q", purpose, provider)
			}
			if seen[provider] {
				return fmt.Errorf("chain %q lists provider %q more than once", purpose, provider)
			}
			seen[provider] = true
		}
	}
	return nil
}

func validateRoles(cfg *Config) error {
	if len(cfg.Roles) == 0 {
		return fmt.Errorf("at least one role must be configured")
	}

	for name, role := range cfg.Roles {
		if role.MaxConcurrent < 1 {
			return fmt.Errorf("role %q: max_concurrent must be >= 1, got %d", name, role.MaxConcurrent)
		}
		if role.Purpose == "" {
			return fmt.Errorf("role %q: purpose is required", name)
		}
		if _, ok := cfg.Chains[role.Purpose]; !ok {
			return fmt.Errorf("role %q references unknown purpose %q", name, role.Purpose)
		}
		if role.DefaultProvider == "" {
			return fmt.Errorf("role %q: default_provider is required", name)
		}
		if _, ok := cfg.Providers[role.DefaultProvider]; !ok {
			return fmt.Errorf("role %q references unknown default_provider %q", name, role.DefaultProvider)
		}
		if role.AllowFallback {
			if role.FallbackProvider == "" {
				return fmt.Errorf("role %q: fallback_provider is required when allow_fallback is true", name)
			}
			if _, ok := cfg.Providers[role.FallbackProvider]; !ok {
				return fmt.Errorf("role %q references unknown fallback_provider %q", name, role.FallbackProvider)
			}
		}
	}
	return nil
}

func validateBreaker(cfg *BreakerConfig) error {
	if cfg.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be >= 1, got %d", cfg.FailureThreshold)
	}
	if cfg.SuccessThreshold < 1 {
		return fmt.Errorf("breaker.success_threshold must be >= 1, got %d", cfg.SuccessThreshold)
	}
	if cfg.MaxHalfOpenProbes < 1 {
		return fmt.Errorf("breaker.max_half_open_probes must be >= 1, got %d", cfg.MaxHalfOpenProbes)
	}
	if cfg.FailureRateThreshold <= 0 || cfg.FailureRateThreshold > 1 {
		return fmt.Errorf("breaker.failure_rate_threshold must be in (0, 1], got %v", cfg.FailureRateThreshold)
	}
	if cfg.RecoveryTimeout <= 0 {
		return fmt.Errorf("breaker.recovery_timeout must be > 0")
	}
	return nil
}

func validateGovernor(cfg *Config) error {
	g := &cfg.Governor
	if g.StaleSlotTimeout <= 0 {
		return fmt.Errorf("governor.stale_slot_timeout must be > 0")
	}
	// A crashed caller's slot must not be reclaimed while its provider's
	// circuit could still be recovering, otherwise a fresh caller can be
	// admitted against a provider the breaker is about to probe.
	if g.StaleSlotTimeout < cfg.Breaker.RecoveryTimeout {
		return fmt.Errorf("governor.stale_slot_timeout (%s) must be >= breaker.recovery_timeout (%s)",
			g.StaleSlotTimeout, cfg.Breaker.RecoveryTimeout)
	}
	if g.GrantCooldown < 0 {
		return fmt.Errorf("governor.grant_cooldown must be >= 0")
	}
	if g.GlobalTokenCeiling < 0 {
		return fmt.Errorf("governor.global_token_ceiling must be >= 0")
	}
	if g.AcquireTimeout <= 0 {
		return fmt.Errorf("governor.acquire_timeout must be > 0")
	}
	return nil
}

func validateSelector(cfg *SelectorConfig) error {
	switch cfg.Strategy {
	case "cost", "speed", "reliability", "capability", "balanced":
	default:
		return fmt.Errorf("selector.strategy must be one of cost, speed, reliability, capability, balanced; got %q", cfg.Strategy)
	}

	w := cfg.Weights
	if w.Cost < 0 || w.Speed < 0 || w.Reliability < 0 || w.Capability < 0 {
		return fmt.Errorf("selector.weights must all be >= 0")
	}
	sum := w.Cost + w.Speed + w.Reliability + w.Capability
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("selector.weights must sum to 1.0, got %.3f", sum)
	}

	if cfg.CostScoreFloor <= 0 || cfg.CostScoreCeiling <= cfg.CostScoreFloor {
		return fmt.Errorf("selector cost score bounds invalid: floor=%v ceiling=%v", cfg.CostScoreFloor, cfg.CostScoreCeiling)
	}
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("selector.queue_capacity must be >= 1, got %d", cfg.QueueCapacity)
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text; got %q", cfg.Logging.Format)
	}
	return nil
}

func validateJournal(cfg *JournalConfig) error {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.Path == "" {
			return fmt.Errorf("journal.path is required when journal.backend is sqlite")
		}
	default:
		return fmt.Errorf("journal.backend must be memory or sqlite; got %q", cfg.Backend)
	}
	return nil
}
