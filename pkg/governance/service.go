package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/warden/pkg/audit"
	"mercator-hq/warden/pkg/breaker"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failover"
	"mercator-hq/warden/pkg/governor"
	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/ratelimit"
	"mercator-hq/warden/pkg/selector"
	"mercator-hq/warden/pkg/storage"
	"mercator-hq/warden/pkg/telemetry/metrics"
)

// Service is the admission-and-failover governance layer: one
// explicitly constructed instance owns the rate limiter, the circuit
// breakers, the failover resolver, the slot governor, and the selector,
// and exposes their operations to callers.
//
// Construct one Service per process with New, call Start to launch the
// background sweeps, and Close on shutdown. Tests construct a fresh
// Service per test; there is no package-level instance.
type Service struct {
	config   *config.Config
	logger   *slog.Logger
	registry *providers.Registry
	stats    *providers.Stats
	limiter  *ratelimit.Limiter
	breakers *breaker.Manager
	resolver *failover.Resolver
	governor *governor.Governor
	scorer   *selector.Scorer
	queue    *selector.Queue
	balancer *selector.Balancer
	strategy selector.ScoringStrategy

	metrics *metrics.Collector
	journal storage.Backend
	trail   *audit.Trail

	cron      *cron.Cron
	closeOnce sync.Once
}

// New constructs a Service from a validated configuration. Defaults are
// applied and the configuration re-validated, so a hand-built config
// (as in tests) works the same as a loaded one.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	strategy, err := selector.StrategyByName(cfg.Selector.Strategy)
	if err != nil {
		return nil, &InvalidConfigurationError{Kind: "strategy", Value: cfg.Selector.Strategy, Err: err}
	}

	registry := providers.NewRegistry(cfg.Providers)
	stats := providers.NewStats(cfg.Selector.StatsWindow)

	breakers := breaker.NewManager(breaker.Config{
		FailureThreshold:     cfg.Breaker.FailureThreshold,
		SuccessThreshold:     cfg.Breaker.SuccessThreshold,
		RecoveryTimeout:      cfg.Breaker.RecoveryTimeout,
		MaxHalfOpenProbes:    cfg.Breaker.MaxHalfOpenProbes,
		FailureRateThreshold: cfg.Breaker.FailureRateThreshold,
		MinRequestsForRate:   cfg.Breaker.MinRequestsForRate,
	})

	resolver := failover.NewResolver(registry, cfg.Chains, breakers)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		ShortWait:               cfg.Limiter.ShortWait,
		BackoffBase:             cfg.Limiter.BackoffBase,
		BackoffMax:              cfg.Limiter.BackoffMax,
		FailoverAfterRejections: cfg.Limiter.FailoverAfterRejections,
	}, registry.All(), resolver)

	roles := make(map[string]governor.RoleLimits, len(cfg.Roles))
	for name, rc := range cfg.Roles {
		roles[name] = governor.RoleLimits{
			MaxConcurrent:    rc.MaxConcurrent,
			Purpose:          rc.Purpose,
			DefaultProvider:  rc.DefaultProvider,
			FallbackProvider: rc.FallbackProvider,
			AllowFallback:    rc.AllowFallback,
		}
	}
	gov := governor.New(governor.Config{
		StaleSlotTimeout:   cfg.Governor.StaleSlotTimeout,
		GrantCooldown:      cfg.Governor.GrantCooldown,
		GlobalTokenCeiling: cfg.Governor.GlobalTokenCeiling,
		AcquireTimeout:     cfg.Governor.AcquireTimeout,
	}, roles, limiter, logger)

	scorer := selector.NewScorer(selector.Config{
		Weights: selector.Weights{
			Cost:        cfg.Selector.Weights.Cost,
			Speed:       cfg.Selector.Weights.Speed,
			Reliability: cfg.Selector.Weights.Reliability,
			Capability:  cfg.Selector.Weights.Capability,
		},
		CostScoreFloor:   cfg.Selector.CostScoreFloor,
		CostScoreCeiling: cfg.Selector.CostScoreCeiling,
		QueueCapacity:    cfg.Selector.QueueCapacity,
	}, registry, stats, breakers, limiter, logger)

	s := &Service{
		config:   cfg,
		logger:   logger.With("component", "governance"),
		registry: registry,
		stats:    stats,
		limiter:  limiter,
		breakers: breakers,
		resolver: resolver,
		governor: gov,
		scorer:   scorer,
		queue:    selector.NewQueue(cfg.Selector.QueueCapacity),
		balancer: selector.NewBalancer(logger),
		strategy: strategy,
		cron:     cron.New(),
	}

	if cfg.Telemetry.Metrics.Enabled {
		s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	if cfg.Journal.Enabled {
		s.journal, err = newJournalBackend(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("journal backend: %w", err)
		}
	}

	if cfg.Audit.Enabled {
		s.trail, err = audit.NewTrail(&audit.Config{Path: cfg.Audit.Path})
		if err != nil {
			return nil, fmt.Errorf("audit trail: %w", err)
		}
	}

	breakers.OnStateChange(s.onCircuitTransition)

	return s, nil
}

func newJournalBackend(cfg config.JournalConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.NewSQLiteBackend(cfg.Path)
	case "memory", "":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}

// Start launches the background jobs: the stale-slot sweep, the
// balancer rebalance, and (when enabled) journal snapshots and
// retention pruning. It returns once the jobs are scheduled.
func (s *Service) Start() error {
	type job struct {
		name     string
		interval time.Duration
		run      func()
	}
	jobs := []job{
		{"stale_sweep", s.config.Governor.SweepInterval, s.sweep},
		{"rebalance", s.config.Selector.RebalanceInterval, s.rebalance},
	}
	if s.journal != nil {
		jobs = append(jobs, job{"journal_snapshot", s.config.Journal.SnapshotInterval, s.journalSnapshot})
	}
	if s.journal != nil || s.trail != nil {
		jobs = append(jobs, job{"retention", time.Hour, s.retention})
	}

	for _, job := range jobs {
		if job.interval <= 0 {
			continue
		}
		spec := fmt.Sprintf("@every %s", job.interval)
		if _, err := s.cron.AddFunc(spec, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("governance service started",
		"providers", s.registry.Len(),
		"roles", len(s.config.Roles),
		"strategy", s.strategy.Name(),
	)
	return nil
}

// Close stops the background jobs and releases the journal and audit
// stores. Close is idempotent.
func (s *Service) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			s.logger.Warn("timed out waiting for background jobs to stop")
		}

		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				closeErr = err
			}
		}
		if s.trail != nil {
			if err := s.trail.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
		s.logger.Info("governance service stopped")
	})
	return closeErr
}

// Reload applies a changed configuration to the running service.
// Provider quotas, failover chains, and role tables swap in place;
// budget counters for surviving providers are preserved. Structural
// settings (strategy, thresholds, backends) require a restart and are
// left untouched.
func (s *Service) Reload(cfg *config.Config) {
	s.limiter.UpdateQuotas(providers.NewRegistry(cfg.Providers).All())
	s.registry.Update(cfg.Providers)
	s.resolver.UpdateChains(cfg.Chains)

	roles := make(map[string]governor.RoleLimits, len(cfg.Roles))
	for name, rc := range cfg.Roles {
		roles[name] = governor.RoleLimits{
			MaxConcurrent:    rc.MaxConcurrent,
			Purpose:          rc.Purpose,
			DefaultProvider:  rc.DefaultProvider,
			FallbackProvider: rc.FallbackProvider,
			AllowFallback:    rc.AllowFallback,
		}
	}
	s.governor.UpdateRoles(roles)

	s.logger.Info("configuration reloaded",
		"providers", len(cfg.Providers),
		"chains", len(cfg.Chains),
		"roles", len(cfg.Roles),
	)
}

// MetricsCollector returns the metrics collector, or nil when metrics
// are disabled.
func (s *Service) MetricsCollector() *metrics.Collector {
	return s.metrics
}

func (s *Service) onCircuitTransition(provider string, from, to breaker.State) {
	if s.metrics != nil {
		s.metrics.Circuit.SetState(provider, int(to))
		s.metrics.Circuit.RecordTransition(provider, to.String())
	}
	s.auditRecord(audit.Decision{
		Kind:     audit.KindCircuitTransition,
		Provider: provider,
		Reason:   fmt.Sprintf("%s -> %s", from, to),
	})
}

func (s *Service) sweep() {
	reclaimed := s.governor.ReclaimStale()
	if reclaimed > 0 {
		if s.metrics != nil {
			s.metrics.Admission.AddStaleReclaims(reclaimed)
		}
		s.auditRecord(audit.Decision{
			Kind:   audit.KindStaleReclaim,
			Reason: fmt.Sprintf("%d slots reclaimed", reclaimed),
		})
	}
	s.updateGauges()
}

func (s *Service) rebalance() {
	scores := s.scorer.Candidates("", 0, 0, s.strategy)
	s.balancer.Rebalance(scores)

	if dropped := s.queue.DropExpired(); dropped > 0 && s.metrics != nil {
		s.metrics.Selection.AddQueueDrops(dropped)
	}
	if s.metrics != nil {
		s.metrics.Selection.SetQueueDepth(s.queue.Len())
	}
}

func (s *Service) journalSnapshot() {
	now := time.Now()
	snapshots := s.limiter.Snapshot()
	entries := make([]storage.Entry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, storage.Entry{
			Provider:              snap.Provider,
			TakenAt:               now,
			UsedThisMinute:        snap.UsedThisMinute,
			UsedToday:             snap.UsedToday,
			RemainingMinute:       snap.RemainingMinute,
			RemainingDaily:        snap.RemainingDaily,
			ConsecutiveRejections: snap.ConsecutiveRejections,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.journal.Append(ctx, entries); err != nil {
		s.logger.Error("failed to append usage journal", "error", err)
	}
}

func (s *Service) retention() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if s.journal != nil && s.config.Journal.Retention > 0 {
		cutoff := time.Now().Add(-s.config.Journal.Retention)
		if _, err := s.journal.Cleanup(ctx, cutoff); err != nil {
			s.logger.Error("failed to prune usage journal", "error", err)
		}
	}
	if s.trail != nil && s.config.Audit.Retention > 0 {
		cutoff := time.Now().Add(-s.config.Audit.Retention)
		if _, err := s.trail.Prune(ctx, cutoff); err != nil {
			s.logger.Error("failed to prune audit trail", "error", err)
		}
	}
}

func (s *Service) auditRecord(d audit.Decision) {
	if s.trail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.trail.Record(ctx, d); err != nil {
		s.logger.Error("failed to record audit decision", "error", err, "kind", d.Kind)
	}
}

func (s *Service) updateGauges() {
	if s.metrics == nil {
		return
	}
	for _, occ := range s.governor.Occupancy() {
		s.metrics.Admission.SetActiveSlots(occ.Role, occ.Active+occ.Fallback)
	}
	s.metrics.Admission.SetAggregateTokens(s.governor.AggregateEstimate())

	for provider, snap := range s.limiter.Snapshot() {
		s.metrics.Budget.SetRemaining(provider, "minute", snap.RemainingMinute)
		s.metrics.Budget.SetRemaining(provider, "daily", snap.RemainingDaily)
	}
}
