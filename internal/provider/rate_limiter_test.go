package provider

import (
	"context"
	"testing"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// countingProvider always succeeds and reports a fixed token usage.
type countingProvider struct {
	name  string
	usage model.TokenUsage
	calls int
}

func (c *countingProvider) Name() string { return c.name }

func (c *countingProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	c.calls++
	return &Completion{Text: c.name + " answer", Tokens: c.usage}, nil
}

func (c *countingProvider) Healthy(ctx context.Context) bool { return true }

func newTestLimiter(t *testing.T, inner, fallback ChatProvider, daily, hourly int, clock *fakeClock) *RateLimiter {
	t.Helper()
	rl, err := NewRateLimiter(inner, fallback, daily, hourly, testLogger(), WithLimiterClock(clock.Now))
	if err != nil {
		t.Fatalf("NewRateLimiter: %v", err)
	}
	return rl
}

func TestRateLimiterRecordsTokens(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 100, Output: 50}}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, nil, 1000, 0, clock)

	if _, err := rl.Complete(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	daily, hourly := rl.TokenUsage()
	if daily != 150 || hourly != 150 {
		t.Errorf("usage = daily %d hourly %d, want 150 each", daily, hourly)
	}
}

func TestRateLimiterDailyBudgetExhausted(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 400, Output: 200}}
	fallback := &countingProvider{name: "fallback"}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, fallback, 1000, 0, clock)

	ctx := context.Background()
	// Two calls consume 1200 tokens, crossing the 1000 budget.
	rl.Complete(ctx, "sys", "user")
	rl.Complete(ctx, "sys", "user")

	completion, err := rl.Complete(ctx, "sys", "user")
	if err != nil {
		t.Fatalf("Complete over budget: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if completion.Text != "fallback answer" {
		t.Errorf("completion text = %q, want fallback answer", completion.Text)
	}
}

func TestRateLimiterNoFallbackError(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 600, Output: 500}}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, nil, 1000, 0, clock)

	ctx := context.Background()
	rl.Complete(ctx, "sys", "user")
	_, err := rl.Complete(ctx, "sys", "user")
	if err != ErrTokenBudgetExceeded {
		t.Errorf("error = %v, want ErrTokenBudgetExceeded", err)
	}
}

func TestRateLimiterHourlyWindowResets(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 80, Output: 40}}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, nil, 0, 100, clock)

	ctx := context.Background()
	rl.Complete(ctx, "sys", "user")
	if _, err := rl.Complete(ctx, "sys", "user"); err != ErrTokenBudgetExceeded {
		t.Fatalf("expected hourly budget exhaustion, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := rl.Complete(ctx, "sys", "user"); err != nil {
		t.Errorf("Complete after hourly reset: %v", err)
	}
	_, hourly := rl.TokenUsage()
	if hourly != 120 {
		t.Errorf("hourly usage after reset = %d, want 120", hourly)
	}
}

func TestRateLimiterDailyWindowResets(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 80, Output: 40}}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, nil, 100, 0, clock)

	ctx := context.Background()
	rl.Complete(ctx, "sys", "user")
	if _, err := rl.Complete(ctx, "sys", "user"); err != ErrTokenBudgetExceeded {
		t.Fatalf("expected daily budget exhaustion, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := rl.Complete(ctx, "sys", "user"); err != nil {
		t.Errorf("Complete after day rollover: %v", err)
	}
}

func TestRateLimiterZeroBudgetsDisabled(t *testing.T) {
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 10000, Output: 10000}}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := newTestLimiter(t, inner, nil, 0, 0, clock)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := rl.Complete(ctx, "sys", "user"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if inner.calls != 5 {
		t.Errorf("inner calls = %d, want 5", inner.calls)
	}
}
