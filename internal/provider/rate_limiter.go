package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// ErrTokenBudgetExceeded is returned when a request would exceed the
// configured token budget and no fallback is available.
var ErrTokenBudgetExceeded = fmt.Errorf("provider token budget exceeded")

// tokenWindow tracks token consumption inside a single calendar window. The
// key identifies the window; when the clock rolls into a new window the
// counter resets.
type tokenWindow struct {
	key    string
	tokens int
}

// RateLimiter wraps a ChatProvider with daily and hourly token budgets.
// Budgets of zero disable the corresponding window. When a budget is
// exhausted, requests route to the fallback provider if one is configured.
type RateLimiter struct {
	inner    ChatProvider
	fallback ChatProvider
	logger   *slog.Logger

	dailyBudget  int
	hourlyBudget int

	mu     sync.Mutex
	daily  tokenWindow
	hourly tokenWindow

	nowFunc func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterClock overrides the limiter's clock for tests.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.nowFunc = now
	}
}

// NewRateLimiter wraps inner with token budget enforcement. fallback may be
// nil, in which case over-budget requests fail with ErrTokenBudgetExceeded.
func NewRateLimiter(inner, fallback ChatProvider, dailyBudget, hourlyBudget int, logger *slog.Logger, opts ...RateLimiterOption) (*RateLimiter, error) {
	if inner == nil {
		return nil, fmt.Errorf("ratelimiter: inner provider must not be nil")
	}
	if dailyBudget < 0 || hourlyBudget < 0 {
		return nil, fmt.Errorf("ratelimiter: budgets must be >= 0, got daily=%d hourly=%d", dailyBudget, hourlyBudget)
	}
	if logger == nil {
		return nil, fmt.Errorf("ratelimiter: logger must not be nil")
	}
	rl := &RateLimiter{
		inner:        inner,
		fallback:     fallback,
		logger:       logger,
		dailyBudget:  dailyBudget,
		hourlyBudget: hourlyBudget,
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl, nil
}

// Name reports the inner provider's backend identifier.
func (rl *RateLimiter) Name() string {
	return rl.inner.Name()
}

func dailyKey(t time.Time) string  { return t.UTC().Format("2006-01-02") }
func hourlyKey(t time.Time) string { return t.UTC().Format("2006-01-02T15") }

// rollWindowsLocked resets any window whose key no longer matches the clock.
// Callers must hold mu.
func (rl *RateLimiter) rollWindowsLocked(now time.Time) {
	if dk := dailyKey(now); rl.daily.key != dk {
		rl.daily = tokenWindow{key: dk}
	}
	if hk := hourlyKey(now); rl.hourly.key != hk {
		rl.hourly = tokenWindow{key: hk}
	}
}

// isOverBudget reports whether either configured window is exhausted.
func (rl *RateLimiter) isOverBudget() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.rollWindowsLocked(rl.nowFunc())
	if rl.dailyBudget > 0 && rl.daily.tokens >= rl.dailyBudget {
		return true
	}
	if rl.hourlyBudget > 0 && rl.hourly.tokens >= rl.hourlyBudget {
		return true
	}
	return false
}

// recordTokens charges a completed request's token usage to both windows.
func (rl *RateLimiter) recordTokens(usage model.TokenUsage) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.rollWindowsLocked(rl.nowFunc())
	rl.daily.tokens += usage.Total()
	rl.hourly.tokens += usage.Total()
}

// TokenUsage reports the tokens consumed in the current daily and hourly
// windows.
func (rl *RateLimiter) TokenUsage() (daily, hourly int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.rollWindowsLocked(rl.nowFunc())
	return rl.daily.tokens, rl.hourly.tokens
}

// Complete forwards to the inner provider unless a budget is exhausted.
func (rl *RateLimiter) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	if rl.isOverBudget() {
		rl.logger.Warn("token budget exhausted, skipping AI backend",
			"daily_budget", rl.dailyBudget,
			"hourly_budget", rl.hourlyBudget,
		)
		if rl.fallback == nil {
			return nil, ErrTokenBudgetExceeded
		}
		return rl.fallback.Complete(ctx, systemPrompt, userPrompt)
	}

	completion, err := rl.inner.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	rl.recordTokens(completion.Tokens)
	return completion, nil
}

// Healthy reports the inner provider's health.
func (rl *RateLimiter) Healthy(ctx context.Context) bool {
	return rl.inner.Healthy(ctx)
}
