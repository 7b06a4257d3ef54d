package governance

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"mercator-hq/warden/pkg/audit"
	"mercator-hq/warden/pkg/failover"
	"mercator-hq/warden/pkg/governor"
	"mercator-hq/warden/pkg/ratelimit"
	"mercator-hq/warden/pkg/selector"
)

// AcquireSlot requests an admission slot. A denial is returned both as
// Grant.Granted == false and as a SlotUnavailableError, so callers can
// branch on either. Unknown roles fail with InvalidConfigurationError.
func (s *Service) AcquireSlot(ctx context.Context, req AcquireRequest) (*Grant, error) {
	grant, err := s.governor.AcquireSlot(ctx, req)
	if err != nil {
		if errors.Is(err, governor.ErrUnknownRole) {
			return nil, &InvalidConfigurationError{Kind: "role", Value: req.Role, Err: err}
		}
		return grant, err
	}

	outcome := "denied"
	kind := audit.KindDenial
	switch {
	case grant.Granted && grant.ForcedFallback:
		outcome = "fallback"
		kind = audit.KindForcedFallback
	case grant.Granted:
		outcome = "granted"
		kind = audit.KindGrant
	}
	if s.metrics != nil {
		s.metrics.Admission.RecordAdmission(req.Role, outcome)
	}
	s.auditRecord(audit.Decision{
		Kind:            kind,
		CallerID:        req.CallerID,
		Role:            req.Role,
		Provider:        grant.Provider,
		SlotID:          grant.SlotID,
		Reason:          grant.Reason,
		EstimatedTokens: req.EstimatedTokens,
	})
	s.updateGauges()

	if !grant.Granted {
		return grant, &SlotUnavailableError{Role: req.Role, Reason: grant.Reason}
	}
	return grant, nil
}

// ReleaseSlot returns a slot and reports actual token consumption.
// Releasing an unknown slot is a no-op.
func (s *Service) ReleaseSlot(slotID string, actualTokens int64) {
	s.governor.ReleaseSlot(slotID, actualTokens)
	s.updateGauges()
}

// CheckBudget reports whether the estimated spend fits the provider's
// quota windows. Unknown providers fail with InvalidConfigurationError.
func (s *Service) CheckBudget(provider string, estimatedTokens int64) (*ratelimit.Decision, error) {
	decision, err := s.limiter.CheckBudget(provider, estimatedTokens)
	if err != nil {
		return nil, &InvalidConfigurationError{Kind: "provider", Value: provider, Err: err}
	}
	if s.metrics != nil {
		outcome := "allowed"
		if !decision.Allowed {
			outcome = "rejected"
		}
		s.metrics.Budget.RecordCheck(provider, outcome)
	}
	return decision, nil
}

// RecordUsage records actual token consumption against the provider's
// budget windows.
func (s *Service) RecordUsage(provider string, actualTokens int64) {
	s.limiter.RecordUsage(provider, actualTokens)
	if s.metrics != nil {
		s.metrics.Budget.AddTokensUsed(provider, actualTokens)
	}
}

// ResolveFailover returns the next usable provider after the given one
// for the purpose. Chain exhaustion surfaces as ChainExhaustedError;
// unknown providers as InvalidConfigurationError.
func (s *Service) ResolveFailover(provider, purpose string) (string, error) {
	next, err := s.resolver.Resolve(provider, purpose)
	if err != nil {
		if errors.Is(err, failover.ErrChainExhausted) {
			return "", &ChainExhaustedError{Provider: provider, Purpose: purpose}
		}
		if errors.Is(err, failover.ErrUnknownProvider) {
			return "", &InvalidConfigurationError{Kind: "provider", Value: provider, Err: err}
		}
		return "", err
	}

	if s.metrics != nil {
		s.metrics.Selection.RecordFailover(provider)
	}
	s.auditRecord(audit.Decision{
		Kind:     audit.KindFailover,
		Provider: next,
		Purpose:  purpose,
		Reason:   "failover from " + provider,
	})
	return next, nil
}

// SelectBestProvider scores every provider serving the purpose at the
// required capability tier (0 accepts any) and returns the best
// available candidate under the configured strategy.
func (s *Service) SelectBestProvider(purpose string, minCapabilityTier int, estimatedTokens int64) (*selector.CandidateScore, error) {
	best, err := s.scorer.SelectBest(purpose, minCapabilityTier, estimatedTokens, s.strategy)
	if err != nil {
		return nil, &InvalidConfigurationError{Kind: "purpose", Value: purpose, Err: err}
	}
	if s.metrics != nil {
		s.metrics.Selection.RecordSelection(best.Provider, s.strategy.Name())
	}
	return best, nil
}

// PickBalanced chooses among the admissible providers using the
// weighted-fair balancer. Before the first rebalance every provider
// carries the same default weight, so picks round-robin.
func (s *Service) PickBalanced(admissible []string) (string, bool) {
	return s.balancer.Pick(admissible)
}

// Enqueue adds a pending request to the saturation queue.
func (s *Service) Enqueue(req selector.PendingRequest) error {
	err := s.queue.Enqueue(req)
	if s.metrics != nil {
		s.metrics.Selection.SetQueueDepth(s.queue.Len())
	}
	return err
}

// DequeueNext removes and returns the highest-priority live pending
// request, or selector.ErrQueueEmpty.
func (s *Service) DequeueNext() (*selector.PendingRequest, error) {
	req, err := s.queue.Dequeue()
	if s.metrics != nil {
		s.metrics.Selection.SetQueueDepth(s.queue.Len())
	}
	return req, err
}

// ReportOutcome is the transport layer's signal after every real
// provider call. It feeds the circuit breaker, the outcome stats, and,
// for rate limit rejections, the limiter's backoff and the resolver's
// advisory cooldown mark. Counters are updated before anything returns,
// so a caller observing the error never races the bookkeeping.
func (s *Service) ReportOutcome(provider string, success bool, statusOrErrorKind int, latency time.Duration) {
	s.stats.RecordOutcome(provider, success, latency)
	if s.metrics != nil {
		s.metrics.Selection.RecordLatency(provider, latency)
	}

	if success {
		s.breakers.RecordSuccess(provider)
		return
	}

	s.breakers.RecordFailure(provider)

	if statusOrErrorKind == http.StatusTooManyRequests {
		advice := s.limiter.RecordRejection(provider)
		cooldown := advice.Wait
		if cooldown <= 0 {
			cooldown = s.config.Limiter.BackoffBase
		}
		s.resolver.MarkRateLimited(provider, cooldown)
		if s.metrics != nil {
			s.metrics.Budget.RecordRejection(provider)
		}
		s.logger.Warn("provider rate limit reported",
			"provider", provider,
			"backoff", cooldown,
			"failover_suggestion", advice.FailoverSuggestion,
		)
	}
}

// Snapshot assembles a point-in-time view of the whole governance
// layer for the status endpoint and dashboards.
func (s *Service) Snapshot() *Snapshot {
	budgets := s.limiter.Snapshot()
	circuits := s.breakers.Snapshot()

	statuses := make([]ProviderStatus, 0, s.registry.Len())
	for _, p := range s.registry.All() {
		status := ProviderStatus{
			ID:          p.ID,
			Tier:        p.Tier,
			RateLimited: s.resolver.IsRateLimited(p.ID),
		}
		if rec, ok := circuits[p.ID]; ok {
			status.Circuit = rec
			status.CircuitState = rec.State.String()
		} else {
			status.CircuitState = s.breakers.State(p.ID).String()
		}
		if snap, ok := budgets[p.ID]; ok {
			status.Budget = snap
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })

	return &Snapshot{
		TakenAt:                  time.Now(),
		Providers:                statuses,
		Roles:                    s.governor.Occupancy(),
		ActiveSlots:              s.governor.ActiveSlots(),
		RateLimitedMarks:         s.resolver.Marks(),
		QueueDepth:               s.queue.Len(),
		AggregateEstimatedTokens: s.governor.AggregateEstimate(),
	}
}
