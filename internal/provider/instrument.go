package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
)

// InstrumentedProvider wraps a ChatProvider and records request counts,
// token consumption, and latency.
type InstrumentedProvider struct {
	inner   ChatProvider
	metrics *metrics.Metrics
	nowFunc func() time.Time
}

// NewInstrumentedProvider wraps inner with metric recording.
func NewInstrumentedProvider(inner ChatProvider, m *metrics.Metrics) (*InstrumentedProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("instrument: inner provider must not be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("instrument: metrics must not be nil")
	}
	return &InstrumentedProvider{
		inner:   inner,
		metrics: m,
		nowFunc: time.Now,
	}, nil
}

// Name reports the inner provider's backend identifier.
func (p *InstrumentedProvider) Name() string {
	return p.inner.Name()
}

// Complete forwards to the inner provider and records the outcome.
func (p *InstrumentedProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	backend := p.inner.Name()
	start := p.nowFunc()

	completion, err := p.inner.Complete(ctx, systemPrompt, userPrompt)

	p.metrics.ProviderLatency.Observe(p.nowFunc().Sub(start).Seconds())
	if err != nil {
		p.metrics.ProviderRequestsTotal.WithLabelValues(backend, "error").Inc()
		return nil, err
	}
	p.metrics.ProviderRequestsTotal.WithLabelValues(backend, "success").Inc()
	p.metrics.ProviderTokensTotal.WithLabelValues(backend, "input").Add(float64(completion.Tokens.Input))
	p.metrics.ProviderTokensTotal.WithLabelValues(backend, "output").Add(float64(completion.Tokens.Output))
	return completion, nil
}

// Healthy reports the inner provider's health.
func (p *InstrumentedProvider) Healthy(ctx context.Context) bool {
	return p.inner.Healthy(ctx)
}
