package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/prompt"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/provider"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/redact"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/sink"
)

// SnapshotCollector is the cluster-facing collaborator the handler needs.
type SnapshotCollector interface {
	Snapshot(ctx context.Context, namespace string) model.ClusterSnapshot
	PodLogs(ctx context.Context, namespace, name string) string
}

// Handler answers natural-language queries. Log requests are served straight
// from the collector; general questions go through the prompt builder and the
// completion provider.
type Handler struct {
	collector  SnapshotCollector
	provider   provider.ChatProvider
	builder    *prompt.Builder
	redactor   *redact.Redactor
	rules      *RuleEngine
	dispatcher *sink.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	namespace  string

	nowFunc func() time.Time
}

// HandlerOptions configures a Handler. Rules and Dispatcher are optional.
type HandlerOptions struct {
	Collector  SnapshotCollector
	Provider   provider.ChatProvider
	Builder    *prompt.Builder
	Redactor   *redact.Redactor
	Rules      *RuleEngine
	Dispatcher *sink.Dispatcher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// Namespace scopes pod and deployment collection. Defaults to "default".
	Namespace string
}

// NewHandler wires the query pipeline.
func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Collector == nil {
		return nil, fmt.Errorf("query: collector must not be nil")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("query: provider must not be nil")
	}
	if opts.Builder == nil {
		return nil, fmt.Errorf("query: prompt builder must not be nil")
	}
	if opts.Metrics == nil {
		return nil, fmt.Errorf("query: metrics must not be nil")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("query: logger must not be nil")
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return &Handler{
		collector:  opts.Collector,
		provider:   opts.Provider,
		builder:    opts.Builder,
		redactor:   opts.Redactor,
		rules:      opts.Rules,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		namespace:  namespace,
		nowFunc:    time.Now,
	}, nil
}

// classify applies routing rule overrides before the built-in classification.
// A rule forcing the log route still goes through pod-name extraction; a rule
// forcing the general route bypasses the "log" substring check.
func (h *Handler) classify(text string) Classification {
	if route, ok := h.rules.Route(text); ok {
		switch route {
		case RouteLog:
			return Classification{Route: RouteLog, PodName: extractPodName(text)}
		case RouteGeneral:
			return Classification{Route: RouteGeneral, Text: text}
		}
	}
	return Classify(text)
}

// Answer processes one query and returns the response. The returned error is
// non-nil only for failures that must surface to the caller, provider errors
// on the general path included. Log-path failures degrade to defined answers.
func (h *Handler) Answer(ctx context.Context, text string) (*model.QueryResponse, error) {
	start := h.nowFunc()

	cls := h.classify(text)
	h.logger.Info("query classified",
		"route", string(cls.Route),
		"pod_name", cls.PodName,
	)

	var answer string
	var err error
	switch cls.Route {
	case RouteLog:
		answer = h.answerLog(ctx, cls)
	default:
		answer, err = h.answerGeneral(ctx, text)
	}

	duration := h.nowFunc().Sub(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	h.metrics.QueriesTotal.WithLabelValues(string(cls.Route), status).Inc()
	h.metrics.QueryDuration.WithLabelValues(string(cls.Route)).Observe(duration.Seconds())

	if err != nil {
		return nil, err
	}

	h.dispatcher.Dispatch(sink.Transcript{
		Query:        text,
		Route:        string(cls.Route),
		AnswerLength: len(answer),
		Backend:      h.provider.Name(),
		Duration:     duration,
		Timestamp:    start.UTC(),
	})

	return &model.QueryResponse{Query: text, Answer: answer}, nil
}

// answerLog serves a log request without touching the completion provider.
// A missing pod name and a failed log fetch both degrade to defined answers.
func (h *Handler) answerLog(ctx context.Context, cls Classification) string {
	if cls.PodName == "" {
		h.logger.Info("log request named no pod")
		return AnswerPodNameNotFound
	}
	logs := h.collector.PodLogs(ctx, h.namespace, cls.PodName)
	return h.redactor.Redact(logs)
}

// answerGeneral collects the snapshot, builds the prompt, and asks the
// provider. Provider and serialization failures propagate.
func (h *Handler) answerGeneral(ctx context.Context, text string) (string, error) {
	snapshot := h.collector.Snapshot(ctx, h.namespace)

	userPrompt, err := h.builder.BuildUserPrompt(snapshot, text)
	if err != nil {
		return "", fmt.Errorf("query: building prompt: %w", err)
	}

	completion, err := h.provider.Complete(ctx, h.builder.SystemPrompt(), userPrompt)
	if err != nil {
		return "", fmt.Errorf("query: completion failed: %w", err)
	}
	return completion.Text, nil
}
