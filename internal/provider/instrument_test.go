package provider

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

func TestInstrumentedProviderRecordsSuccess(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	inner := &countingProvider{name: "openai", usage: model.TokenUsage{Input: 100, Output: 25}}

	p, err := NewInstrumentedProvider(inner, m)
	if err != nil {
		t.Fatalf("NewInstrumentedProvider: %v", err)
	}

	if _, err := p.Complete(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if got := testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("openai", "success")); got != 1 {
		t.Errorf("success requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensTotal.WithLabelValues("openai", "input")); got != 100 {
		t.Errorf("input tokens = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensTotal.WithLabelValues("openai", "output")); got != 25 {
		t.Errorf("output tokens = %v, want 25", got)
	}
}

func TestInstrumentedProviderRecordsError(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	inner := &scriptedProvider{name: "claude", results: errs(1)}

	p, err := NewInstrumentedProvider(inner, m)
	if err != nil {
		t.Fatalf("NewInstrumentedProvider: %v", err)
	}

	if _, err := p.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected inner error to propagate")
	}
	if got := testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("claude", "error")); got != 1 {
		t.Errorf("error requests = %v, want 1", got)
	}
}
