package ratelimit

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"mercator-hq/warden/pkg/providers"
)

// Window lengths for the two budget counters.
const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// Limiter tracks per-provider token consumption in rolling 1-minute and
// 24-hour windows and answers whether an estimated spend fits.
//
// Windows reset lazily: on every access, an elapsed window's counter and
// start timestamp are reset before the check runs, under the limiter lock,
// so no background timer is needed and concurrent callers cannot observe a
// half-reset window.
//
// A single mutex guards all provider budgets. Budget checks are short
// (no I/O), so collective locking does not become a bottleneck before the
// providers themselves do.
type Limiter struct {
	config  Config
	advisor FailoverAdvisor

	mu      sync.Mutex
	budgets map[string]*budget
}

// budget is the mutable per-provider counter state.
type budget struct {
	tokensPerMinute int64
	tokensPerDay    int64

	usedThisMinute int64
	usedToday      int64
	minuteStart    time.Time
	dayStart       time.Time

	consecutiveRejections int
}

// NewLimiter creates a limiter seeded with every provider in the catalog.
// The advisor supplies failover suggestions and may be nil, in which case
// decisions never carry one.
func NewLimiter(cfg Config, catalog []providers.Provider, advisor FailoverAdvisor) *Limiter {
	if cfg.ShortWait <= 0 {
		cfg.ShortWait = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 60 * time.Second
	}
	if cfg.FailoverAfterRejections <= 0 {
		cfg.FailoverAfterRejections = 3
	}

	now := time.Now()
	budgets := make(map[string]*budget, len(catalog))
	for _, p := range catalog {
		budgets[p.ID] = &budget{
			tokensPerMinute: p.TokensPerMinute,
			tokensPerDay:    p.TokensPerDay,
			minuteStart:     now,
			dayStart:        now,
		}
	}

	return &Limiter{
		config:  cfg,
		advisor: advisor,
		budgets: budgets,
	}
}

// CheckBudget reports whether spending estimatedTokens against the provider
// fits both quota windows right now. It does not reserve anything; the spend
// is recorded later via RecordUsage with the actual count.
//
// Minute-window exhaustion proposes a wait when the window rolls over soon
// (within ShortWait), otherwise a failover suggestion. Daily-window
// exhaustion is a hard stop: it is never waited out unless the day window
// happens to roll over within ShortWait.
func (l *Limiter) CheckBudget(provider string, estimatedTokens int64) (*Decision, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	b.resetElapsedWindows(now)

	remainingMinute := remaining(b.tokensPerMinute, b.usedThisMinute)
	remainingDaily := remaining(b.tokensPerDay, b.usedToday)

	// Daily window first: it is the harder stop.
	if b.tokensPerDay > 0 && b.usedToday+estimatedTokens > b.tokensPerDay {
		decision := &Decision{
			Allowed:         false,
			Reason:          "daily budget exhausted",
			RemainingMinute: remainingMinute,
			RemainingDaily:  remainingDaily,
		}
		untilReset := b.dayStart.Add(dayWindow).Sub(now)
		if untilReset <= l.config.ShortWait {
			decision.Wait = untilReset
		} else if alt, ok := l.suggestFailover(provider); ok {
			decision.FailoverSuggestion = alt
		}
		slog.Debug("budget check rejected",
			"provider", provider,
			"reason", decision.Reason,
			"estimated_tokens", estimatedTokens,
			"remaining_daily", remainingDaily,
		)
		return decision, nil
	}

	if b.tokensPerMinute > 0 && b.usedThisMinute+estimatedTokens > b.tokensPerMinute {
		decision := &Decision{
			Allowed:         false,
			Reason:          "minute budget exhausted",
			RemainingMinute: remainingMinute,
			RemainingDaily:  remainingDaily,
		}
		untilReset := b.minuteStart.Add(minuteWindow).Sub(now)
		if untilReset <= l.config.ShortWait {
			decision.Wait = untilReset
		} else if alt, ok := l.suggestFailover(provider); ok {
			decision.FailoverSuggestion = alt
		}
		slog.Debug("budget check rejected",
			"provider", provider,
			"reason", decision.Reason,
			"estimated_tokens", estimatedTokens,
			"remaining_minute", remainingMinute,
		)
		return decision, nil
	}

	return &Decision{
		Allowed:         true,
		RemainingMinute: remainingMinute,
		RemainingDaily:  remainingDaily,
	}, nil
}

// RecordUsage records actual token consumption against both windows.
// Unknown providers are ignored: usage reports race configuration reloads
// and a late report for a removed provider is not an error.
func (l *Limiter) RecordUsage(provider string, actualTokens int64) {
	if actualTokens <= 0 {
		return
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[provider]
	if !ok {
		return
	}

	b.resetElapsedWindows(now)
	b.usedThisMinute += actualTokens
	b.usedToday += actualTokens
}

// RecordRejection records an explicit provider-side rejection signal and
// computes backoff advice: wait = min(BackoffMax, BackoffBase * 2^(n-1))
// plus uniform jitter in [0, wait/2), where n counts consecutive rejections
// since the last window reset. After FailoverAfterRejections consecutive
// rejections the advice additionally carries a failover suggestion.
func (l *Limiter) RecordRejection(provider string) *RejectionAdvice {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[provider]
	if !ok {
		return &RejectionAdvice{Wait: l.config.BackoffBase}
	}

	b.resetElapsedWindows(now)
	b.consecutiveRejections++
	n := b.consecutiveRejections

	// Shift-based doubling; n is capped before the shift can overflow.
	wait := l.config.BackoffMax
	if n <= 30 {
		if doubled := l.config.BackoffBase << (n - 1); doubled > 0 && doubled < l.config.BackoffMax {
			wait = doubled
		}
	}
	wait += time.Duration(rand.Int63n(int64(wait)/2 + 1))

	advice := &RejectionAdvice{Wait: wait}
	if n >= l.config.FailoverAfterRejections {
		if alt, ok := l.suggestFailover(provider); ok {
			advice.FailoverSuggestion = alt
		}
	}

	slog.Warn("provider rejection recorded",
		"provider", provider,
		"consecutive_rejections", n,
		"backoff", wait,
		"failover_suggestion", advice.FailoverSuggestion,
	)
	return advice
}

// Remaining returns the unspent minute and daily budgets for a provider.
// Unlimited windows report the maximum int64.
func (l *Limiter) Remaining(provider string) (minute, daily int64, err error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[provider]
	if !ok {
		return 0, 0, fmt.Errorf("unknown provider %q", provider)
	}

	b.resetElapsedWindows(now)
	return remaining(b.tokensPerMinute, b.usedThisMinute), remaining(b.tokensPerDay, b.usedToday), nil
}

// Snapshot returns a point-in-time view of every provider budget.
func (l *Limiter) Snapshot() map[string]BudgetSnapshot {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]BudgetSnapshot, len(l.budgets))
	for provider, b := range l.budgets {
		b.resetElapsedWindows(now)
		result[provider] = BudgetSnapshot{
			Provider:              provider,
			TokensPerMinute:       b.tokensPerMinute,
			TokensPerDay:          b.tokensPerDay,
			UsedThisMinute:        b.usedThisMinute,
			UsedToday:             b.usedToday,
			RemainingMinute:       remaining(b.tokensPerMinute, b.usedThisMinute),
			RemainingDaily:        remaining(b.tokensPerDay, b.usedToday),
			MinuteResetAt:         b.minuteStart.Add(minuteWindow),
			DayResetAt:            b.dayStart.Add(dayWindow),
			ConsecutiveRejections: b.consecutiveRejections,
		}
	}
	return result
}

// UpdateQuotas replaces provider quotas from a reloaded catalog. Counters
// for surviving providers are preserved; new providers start fresh and
// removed providers are dropped.
func (l *Limiter) UpdateQuotas(catalog []providers.Provider) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[string]*budget, len(catalog))
	for _, p := range catalog {
		if b, ok := l.budgets[p.ID]; ok {
			b.tokensPerMinute = p.TokensPerMinute
			b.tokensPerDay = p.TokensPerDay
			next[p.ID] = b
			continue
		}
		next[p.ID] = &budget{
			tokensPerMinute: p.TokensPerMinute,
			tokensPerDay:    p.TokensPerDay,
			minuteStart:     now,
			dayStart:        now,
		}
	}
	l.budgets = next
}

// suggestFailover asks the advisor for an alternative. Caller must hold the
// limiter lock; the advisor must not call back into the limiter.
func (l *Limiter) suggestFailover(provider string) (string, bool) {
	if l.advisor == nil {
		return "", false
	}
	return l.advisor.SuggestFailover(provider)
}

// resetElapsedWindows resets any counter whose window has elapsed. A minute
// rollover also clears the consecutive rejection count, so backoff restarts
// once the provider has had a fresh window. Caller must hold the limiter
// lock.
func (b *budget) resetElapsedWindows(now time.Time) {
	if now.Sub(b.minuteStart) >= minuteWindow {
		b.usedThisMinute = 0
		b.minuteStart = now
		b.consecutiveRejections = 0
	}
	if now.Sub(b.dayStart) >= dayWindow {
		b.usedToday = 0
		b.dayStart = now
	}
}

// remaining computes capacity - used, treating zero capacity as unlimited.
func remaining(capacity, used int64) int64 {
	if capacity <= 0 {
		return int64(^uint64(0) >> 1)
	}
	r := capacity - used
	if r < 0 {
		return 0
	}
	return r
}
