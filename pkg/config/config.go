package config

import "time"

// Config is the root configuration structure for Warden.
// It contains all configuration sections for the provider registry, failover
// chains, role concurrency, the admission components, telemetry, and the
// optional persistence backends.
type Config struct {
	// Server contains the status/introspection HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Providers describes every backend provider Warden governs.
	// Keys are provider identifiers (e.g., "claude-opus", "gpt-4o").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Chains maps workload purposes to ordered failover chains.
	// Keys are purpose names (e.g., "orchestrator", "coding"); values are
	// provider identifiers ordered from most preferred to emergency fallback.
	Chains map[string][]string `yaml:"chains"`

	// Roles maps agent roles to their concurrency and fallback settings.
	// Keys are role names (e.g., "coder", "reviewer", "searcher").
	Roles map[string]RoleConfig `yaml:"roles"`

	// Limiter contains token budget rate limiting configuration.
	Limiter LimiterConfig `yaml:"limiter"`

	// Breaker contains per-provider circuit breaker configuration.
	Breaker BreakerConfig `yaml:"breaker"`

	// Governor contains concurrency slot governor configuration.
	Governor GovernorConfig `yaml:"governor"`

	// Selector contains provider scoring and load balancing configuration.
	Selector SelectorConfig `yaml:"selector"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Journal contains the optional usage snapshot journal configuration.
	Journal JournalConfig `yaml:"journal"`

	// Audit contains the optional admission decision audit configuration.
	Audit AuditConfig `yaml:"audit"`
}

// ServerConfig contains configuration for the status HTTP server.
// The server exposes /healthz, /status, and /metrics and is read-only:
// nothing served by it can mutate governance state.
type ServerConfig struct {
	// Enabled controls whether the status server is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig describes a single governed provider: its capability tier,
// the workload purposes it serves, its cost, and its token quotas.
type ProviderConfig struct {
	// Tier is the capability/cost rank: 1 = most capable and expensive,
	// 5 = cheapest and fastest. Required, must be 1-5.
	Tier int `yaml:"tier"`

	// Purposes lists the workload purposes this provider serves
	// (e.g., "orchestrator", "reasoning", "coding", "librarian").
	Purposes []string `yaml:"purposes"`

	// CostPerMTokens is the cost in USD per million tokens.
	// Used by the selector's cost score. Required, must be > 0.
	CostPerMTokens float64 `yaml:"cost_per_mtokens"`

	// TokensPerMinute is the rolling 1-minute token quota.
	// Zero means no per-minute limit.
	TokensPerMinute int64 `yaml:"tokens_per_minute"`

	// TokensPerDay is the rolling 24-hour token quota.
	// Zero means no daily limit.
	TokensPerDay int64 `yaml:"tokens_per_day"`
}

// RoleConfig contains per-role admission settings.
type RoleConfig struct {
	// MaxConcurrent is the maximum number of simultaneously active callers
	// holding this role. Required, must be >= 1.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Purpose is the workload purpose this role declares by default.
	// Must name a configured chain.
	Purpose string `yaml:"purpose"`

	// DefaultProvider is the provider this role is assigned when admission
	// succeeds normally. Must name a configured provider.
	DefaultProvider string `yaml:"default_provider"`

	// FallbackProvider is the cheap provider used when the caller is forced
	// into degraded mode. Required when AllowFallback is true.
	FallbackProvider string `yaml:"fallback_provider"`

	// AllowFallback controls whether this role may be demoted to the
	// fallback provider instead of being denied. Roles where degraded
	// output is unsafe (e.g., "reviewer") should leave this false.
	AllowFallback bool `yaml:"allow_fallback"`
}

// LimiterConfig contains token budget rate limiter configuration.
type LimiterConfig struct {
	// ShortWait is the longest wait the limiter will propose instead of a
	// failover suggestion when a minute window is exhausted.
	// Default: 10s
	ShortWait time.Duration `yaml:"short_wait"`

	// BackoffBase is the base wait for the first consecutive rejection.
	// Default: 1s
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffMax caps the exponential rejection backoff.
	// Default: 60s
	BackoffMax time.Duration `yaml:"backoff_max"`

	// FailoverAfterRejections is how many consecutive rejections trigger a
	// failover suggestion in addition to backoff. Default: 3
	FailoverAfterRejections int `yaml:"failover_after_rejections"`
}

// BreakerConfig contains circuit breaker thresholds shared by all
// per-provider breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of consecutive half-open successes
	// that closes the circuit. Default: 2
	SuccessThreshold int `yaml:"success_threshold"`

	// RecoveryTimeout is how long an open circuit waits before admitting
	// half-open probes. Default: 30s
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`

	// MaxHalfOpenProbes is the number of concurrent probe requests admitted
	// while half-open. Default: 1
	MaxHalfOpenProbes int `yaml:"max_half_open_probes"`

	// FailureRateThreshold opens the circuit when the overall failure rate
	// reaches this fraction (0.0-1.0), once MinRequestsForRate requests
	// have been observed. Default: 0.5
	FailureRateThreshold float64 `yaml:"failure_rate_threshold"`

	// MinRequestsForRate is the minimum number of observed requests before
	// the failure rate check applies. Default: 10
	MinRequestsForRate int `yaml:"min_requests_for_rate"`
}

// GovernorConfig contains concurrency slot governor configuration.
type GovernorConfig struct {
	// StaleSlotTimeout is the age after which an unreleased slot is
	// reclaimed. Must be >= Breaker.RecoveryTimeout so a crashed caller's
	// slot cannot outlive the worst-case circuit recovery.
	// Default: 10m
	StaleSlotTimeout time.Duration `yaml:"stale_slot_timeout"`

	// GrantCooldown is the minimum interval between successive grants,
	// smoothing bursty fleet starts. Default: 2s
	GrantCooldown time.Duration `yaml:"grant_cooldown"`

	// GlobalTokenCeiling caps the aggregate estimated tokens across all
	// active slots. Grants that would exceed it are demoted to fallback.
	// Zero means no global ceiling. Default: 500000
	GlobalTokenCeiling int64 `yaml:"global_token_ceiling"`

	// AcquireTimeout bounds how long AcquireSlot may wait (cooldowns and
	// short budget waits included) before deciding. Default: 30s
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	// SweepInterval is how often the background stale-slot sweep runs.
	// Default: 1m
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// SelectorConfig contains provider scoring and load balancing configuration.
type SelectorConfig struct {
	// Strategy selects the default scoring strategy. One of
	// "cost", "speed", "reliability", "capability", "balanced".
	// Default: "balanced"
	Strategy string `yaml:"strategy"`

	// Weights are the sub-score weights used by the balanced strategy.
	Weights WeightsConfig `yaml:"weights"`

	// CostScoreFloor is the tokens-per-dollar value that maps to score 0.
	// Default: 10000
	CostScoreFloor float64 `yaml:"cost_score_floor"`

	// CostScoreCeiling is the tokens-per-dollar value that maps to score 100.
	// Default: 2000000
	CostScoreCeiling float64 `yaml:"cost_score_ceiling"`

	// QueueCapacity bounds the pending request priority queue.
	// Default: 256
	QueueCapacity int `yaml:"queue_capacity"`

	// RebalanceInterval is how often load balancer weights are recomputed
	// from provider scores. Default: 30s
	RebalanceInterval time.Duration `yaml:"rebalance_interval"`

	// StatsWindow is the rolling window used for latency and success rate
	// observations. Default: 5m
	StatsWindow time.Duration `yaml:"stats_window"`
}

// WeightsConfig contains the weighted-sum coefficients for provider scoring.
// The four weights should sum to 1.0.
type WeightsConfig struct {
	// Cost weight. Default: 0.30
	Cost float64 `yaml:"cost"`

	// Speed weight. Default: 0.30
	Speed float64 `yaml:"speed"`

	// Reliability weight. Default: 0.25
	Reliability float64 `yaml:"reliability"`

	// Capability weight. Default: 0.15
	Capability float64 `yaml:"capability"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace prefix.
	// Default: "warden"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem label.
	// Default: "governance"
	Subsystem string `yaml:"subsystem"`
}

// JournalConfig contains the optional usage snapshot journal configuration.
// The journal periodically persists per-provider budget usage so operators
// can inspect consumption history. Governance state itself is in-memory only
// and is never restored from the journal.
type JournalConfig struct {
	// Enabled controls whether snapshots are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database path when Backend is "sqlite".
	Path string `yaml:"path"`

	// SnapshotInterval is how often usage snapshots are taken.
	// Default: 1m
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// Retention is how long snapshots are kept before pruning.
	// Default: 168h (7 days)
	Retention time.Duration `yaml:"retention"`
}

// AuditConfig contains the optional admission decision audit configuration.
// When enabled, every grant, denial, forced fallback, and failover resolution
// is appended to a SQLite audit trail.
type AuditConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database path.
	// Default: "./warden_audit.db"
	Path string `yaml:"path"`

	// Retention is how long audit records are kept before pruning.
	// Default: 720h (30 days)
	Retention time.Duration `yaml:"retention"`

	// PruneInterval is how often the retention pruner runs.
	// Default: 1h
	PruneInterval time.Duration `yaml:"prune_interval"`
}
