// Package metrics defines and registers all Prometheus metrics for the query
// agent. Consumers obtain a *Metrics instance via NewMetrics() and use the
// exported fields to record observations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "kube_query_agent"
)

// Metrics holds all Prometheus metric collectors for the query agent.
type Metrics struct {
	// QueriesTotal counts handled queries, partitioned by route
	// (log/general) and status (ok/error).
	QueriesTotal *prometheus.CounterVec

	// QueryDuration observes end-to-end request handling time, partitioned
	// by route.
	QueryDuration *prometheus.HistogramVec

	// CollectionFailuresTotal counts degraded collector categories,
	// partitioned by category (pods/deployments/nodes/pod_logs).
	CollectionFailuresTotal *prometheus.CounterVec

	// SnapshotDuration observes the time to collect a full cluster snapshot.
	SnapshotDuration prometheus.Histogram

	// ProviderRequestsTotal counts completion API calls, partitioned by
	// backend and status.
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderTokensTotal counts tokens consumed, partitioned by backend
	// and direction (input/output).
	ProviderTokensTotal *prometheus.CounterVec

	// ProviderLatency observes completion response latency in seconds.
	ProviderLatency prometheus.Histogram

	// CircuitBreakerState reports the provider circuit breaker state:
	// 0 = closed, 1 = open, 2 = half-open.
	CircuitBreakerState prometheus.Gauge

	// SinkDeliveriesTotal counts transcript sink deliveries, partitioned by
	// sink name and status (success/failure).
	SinkDeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors with
// the provided prometheus.Registerer. Use prometheus.DefaultRegisterer for
// the standard global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of handled queries.",
			},
			[]string{"route", "status"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "End-to-end query handling time, in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"route"},
		),

		CollectionFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collection_failures_total",
				Help:      "Total number of degraded collector categories.",
			},
			[]string{"category"},
		),

		SnapshotDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_duration_seconds",
				Help:      "Time to collect a full cluster snapshot, in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of completion provider API calls.",
			},
			[]string{"backend", "status"},
		),

		ProviderTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_tokens_total",
				Help:      "Total tokens consumed by the completion provider.",
			},
			[]string{"backend", "direction"},
		),

		ProviderLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Completion provider response latency in seconds.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),

		CircuitBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Provider circuit breaker state: 0 = closed, 1 = open, 2 = half-open.",
			},
		),

		SinkDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_deliveries_total",
				Help:      "Total number of transcript sink deliveries.",
			},
			[]string{"sink", "status"},
		),
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.CollectionFailuresTotal,
		m.SnapshotDuration,
		m.ProviderRequestsTotal,
		m.ProviderTokensTotal,
		m.ProviderLatency,
		m.CircuitBreakerState,
		m.SinkDeliveriesTotal,
	)

	return m
}
