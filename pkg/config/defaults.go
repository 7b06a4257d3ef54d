package config

import "time"

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place. Zero values for quota and ceiling
// fields are meaningful ("no limit") and are left alone.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLimiterDefaults(&cfg.Limiter)
	applyBreakerDefaults(&cfg.Breaker)
	applyGovernorDefaults(&cfg.Governor)
	applySelectorDefaults(&cfg.Selector)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyJournalDefaults(&cfg.Journal)
	applyAuditDefaults(&cfg.Audit)
}

func applyServerDefaults(cfg *ServerConfig) {
	// Enabled defaults to true when the section is untouched.
	if !cfg.Enabled && cfg.ListenAddress == "" {
		cfg.Enabled = true
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "127.0.0.1:9090"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyLimiterDefaults(cfg *LimiterConfig) {
	if cfg.ShortWait == 0 {
		cfg.ShortWait = 10 * time.Second
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 60 * time.Second
	}
	if cfg.FailoverAfterRejections == 0 {
		cfg.FailoverAfterRejections = 3
	}
}

func applyBreakerDefaults(cfg *BreakerConfig) {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.MaxHalfOpenProbes == 0 {
		cfg.MaxHalfOpenProbes = 1
	}
	if cfg.FailureRateThreshold == 0 {
		cfg.FailureRateThreshold = 0.5
	}
	if cfg.MinRequestsForRate == 0 {
		cfg.MinRequestsForRate = 10
	}
}

func applyGovernorDefaults(cfg *GovernorConfig) {
	if cfg.StaleSlotTimeout == 0 {
		cfg.StaleSlotTimeout = 10 * time.Minute
	}
	if cfg.GrantCooldown == 0 {
		cfg.GrantCooldown = 2 * time.Second
	}
	if cfg.GlobalTokenCeiling == 0 {
		cfg.GlobalTokenCeiling = 500_000
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}
}

func applySelectorDefaults(cfg *SelectorConfig) {
	if cfg.Strategy == "" {
		cfg.Strategy = "balanced"
	}
	if cfg.Weights == (WeightsConfig{}) {
		cfg.Weights = WeightsConfig{
			Cost:        0.30,
			Speed:       0.30,
			Reliability: 0.25,
			Capability:  0.15,
		}
	}
	if cfg.CostScoreFloor == 0 {
		cfg.CostScoreFloor = 10_000
	}
	if cfg.CostScoreCeiling == 0 {
		cfg.CostScoreCeiling = 2_000_000
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.RebalanceInterval == 0 {
		cfg.RebalanceInterval = 30 * time.Second
	}
	if cfg.StatsWindow == 0 {
		cfg.StatsWindow = 5 * time.Minute
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	// Metrics default on when the section is untouched.
	if !cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		cfg.Metrics.Enabled = true
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "warden"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "governance"
	}
}

func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = time.Minute
	}
	if cfg.Retention == 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Path == "" {
		cfg.Path = "./warden_audit.db"
	}
	if cfg.Retention == 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}
}
