// Package sink defines the Sink interface and provides built-in sink
// implementations for delivering query transcripts to external systems.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
)

var (
	errNilTranscript = errors.New("transcript must not be nil")
	errNilLogger     = errors.New("logger must not be nil")
)

// Transcript is the audit record emitted for every answered query. The
// answer text itself is deliberately excluded; only its length is recorded,
// so transcripts can be shipped off-cluster without leaking log contents.
type Transcript struct {
	Query        string        `json:"query"`
	Route        string        `json:"route"`
	AnswerLength int           `json:"answer_length"`
	Backend      string        `json:"backend"`
	Duration     time.Duration `json:"duration_ms"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Sink delivers query transcripts to an external system. Sinks must be safe
// for concurrent use.
type Sink interface {
	// Name returns the unique name of this sink (e.g., "log", "webhook", "s3").
	Name() string

	// Deliver sends the transcript to the sink's target system. It returns
	// an error if delivery fails after all retries are exhausted.
	Deliver(ctx context.Context, t *Transcript) error
}

// retryConfig holds parameters for retry with exponential backoff.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	multiplier  float64
}

// defaultRetryConfig returns the default retry configuration:
// 3 attempts with backoff 1s, 5s, 25s.
func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts: 3,
		baseDelay:   1 * time.Second,
		multiplier:  5.0,
	}
}

// deliverWithRetry executes fn up to cfg.maxAttempts times with exponential
// backoff. The context can cancel retries early.
func deliverWithRetry(ctx context.Context, logger *slog.Logger, sinkName string, cfg retryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sink %s: context cancelled before attempt %d: %w", sinkName, attempt+1, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		logger.Warn("sink delivery attempt failed",
			"sink", sinkName,
			"attempt", attempt+1,
			"max_attempts", cfg.maxAttempts,
			"error", lastErr,
		)

		if attempt < cfg.maxAttempts-1 {
			delay := time.Duration(float64(cfg.baseDelay) * math.Pow(cfg.multiplier, float64(attempt)))
			select {
			case <-ctx.Done():
				return fmt.Errorf("sink %s: context cancelled during backoff: %w", sinkName, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("sink %s: delivery failed after %d attempts: %w", sinkName, cfg.maxAttempts, lastErr)
}

// deliveryTimeout bounds a single sink's delivery, retries included.
const deliveryTimeout = 90 * time.Second

// Dispatcher fans transcripts out to all configured sinks. Delivery is
// asynchronous and best-effort: a slow or failing sink never delays the query
// response.
type Dispatcher struct {
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, m *metrics.Metrics, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		return nil, errNilLogger
	}
	if m == nil {
		return nil, fmt.Errorf("dispatcher: metrics must not be nil")
	}
	return &Dispatcher{sinks: sinks, metrics: m, logger: logger}, nil
}

// Dispatch delivers the transcript to every sink in its own goroutine. Safe
// to call on a nil dispatcher, which makes sinks fully optional.
func (d *Dispatcher) Dispatch(t Transcript) {
	if d == nil {
		return
	}
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()

			if err := s.Deliver(ctx, &t); err != nil {
				d.logger.Error("sink delivery failed", "sink", s.Name(), "error", err)
				d.metrics.SinkDeliveriesTotal.WithLabelValues(s.Name(), "error").Inc()
				return
			}
			d.metrics.SinkDeliveriesTotal.WithLabelValues(s.Name(), "success").Inc()
		}(s)
	}
}

// Wait blocks until all in-flight deliveries finish. Called during shutdown
// and by tests.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
