package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the current state of a circuit breaker.
type BreakerState string

const (
	// BreakerClosed means requests flow to the primary provider.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen means the primary is skipped and the fallback serves
	// requests until the open duration elapses.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen means a single trial request is allowed through to
	// probe whether the primary has recovered.
	BreakerHalfOpen BreakerState = "half-open"
)

// ErrCircuitOpen is returned when the breaker is open and no fallback is
// configured.
var ErrCircuitOpen = fmt.Errorf("provider circuit breaker is open")

// CircuitBreaker wraps a primary ChatProvider with failure tracking. After a
// configured number of consecutive failures it opens and routes requests to
// the fallback provider. After the open duration elapses the next request is
// let through as a trial; success closes the breaker, failure reopens it.
type CircuitBreaker struct {
	primary  ChatProvider
	fallback ChatProvider
	logger   *slog.Logger

	failureThreshold int
	openDuration     time.Duration
	onStateChange    func(state BreakerState)

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time

	nowFunc func() time.Time
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithBreakerClock overrides the breaker's clock for tests.
func WithBreakerClock(now func() time.Time) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.nowFunc = now
	}
}

// WithStateChangeHook registers a callback invoked whenever the breaker
// transitions state. Used to keep a metric gauge in sync.
func WithStateChangeHook(fn func(state BreakerState)) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// NewCircuitBreaker wraps primary with breaker logic. fallback may be nil, in
// which case requests during the open window fail with ErrCircuitOpen.
func NewCircuitBreaker(primary, fallback ChatProvider, failureThreshold int, openDuration time.Duration, logger *slog.Logger, opts ...CircuitBreakerOption) (*CircuitBreaker, error) {
	if primary == nil {
		return nil, fmt.Errorf("circuitbreaker: primary provider must not be nil")
	}
	if failureThreshold <= 0 {
		return nil, fmt.Errorf("circuitbreaker: failureThreshold must be > 0, got %d", failureThreshold)
	}
	if openDuration <= 0 {
		return nil, fmt.Errorf("circuitbreaker: openDuration must be > 0, got %s", openDuration)
	}
	if logger == nil {
		return nil, fmt.Errorf("circuitbreaker: logger must not be nil")
	}
	cb := &CircuitBreaker{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
		state:            BreakerClosed,
		nowFunc:          time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb, nil
}

// Name reports the primary's backend identifier.
func (cb *CircuitBreaker) Name() string {
	return cb.primary.Name()
}

// State returns the breaker's current state, accounting for open windows that
// have elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// currentStateLocked transitions open to half-open once the open window has
// elapsed. Callers must hold mu.
func (cb *CircuitBreaker) currentStateLocked() BreakerState {
	if cb.state == BreakerOpen && cb.nowFunc().Sub(cb.openedAt) >= cb.openDuration {
		cb.setStateLocked(BreakerHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(s BreakerState) {
	if cb.state == s {
		return
	}
	cb.logger.Info("circuit breaker state change", "from", string(cb.state), "to", string(s))
	cb.state = s
	if cb.onStateChange != nil {
		cb.onStateChange(s)
	}
}

// Complete routes the request through the breaker.
func (cb *CircuitBreaker) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	cb.mu.Lock()
	state := cb.currentStateLocked()
	cb.mu.Unlock()

	if state == BreakerOpen {
		return cb.serveFallback(ctx, systemPrompt, userPrompt)
	}

	completion, err := cb.primary.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		cb.recordFailure()
		cb.mu.Lock()
		open := cb.state == BreakerOpen
		cb.mu.Unlock()
		if open {
			if fb, fbErr := cb.serveFallback(ctx, systemPrompt, userPrompt); fbErr == nil {
				return fb, nil
			}
		}
		return nil, err
	}
	cb.recordSuccess()
	return completion, nil
}

func (cb *CircuitBreaker) serveFallback(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	if cb.fallback == nil {
		return nil, ErrCircuitOpen
	}
	return cb.fallback.Complete(ctx, systemPrompt, userPrompt)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.setStateLocked(BreakerClosed)
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.state == BreakerHalfOpen || cb.consecutiveFailures >= cb.failureThreshold {
		cb.setStateLocked(BreakerOpen)
		cb.openedAt = cb.nowFunc()
	}
}

// Healthy reports the primary's health while closed, and false while open.
func (cb *CircuitBreaker) Healthy(ctx context.Context) bool {
	if cb.State() == BreakerOpen {
		return false
	}
	return cb.primary.Healthy(ctx)
}
