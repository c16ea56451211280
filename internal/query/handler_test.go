package query

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/config"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/prompt"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/provider"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/redact"
)

// fakeCollector serves a canned snapshot and per-pod logs.
type fakeCollector struct {
	snapshot      model.ClusterSnapshot
	podLogs       map[string]string
	snapshotCalls int
	logCalls      []string
}

func (f *fakeCollector) Snapshot(ctx context.Context, namespace string) model.ClusterSnapshot {
	f.snapshotCalls++
	return f.snapshot
}

func (f *fakeCollector) PodLogs(ctx context.Context, namespace, name string) string {
	f.logCalls = append(f.logCalls, namespace+"/"+name)
	return f.podLogs[name]
}

// stubProvider records prompts and returns a fixed answer.
type stubProvider struct {
	answer     string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*provider.Completion, error) {
	s.calls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Completion{Text: s.answer}, nil
}

func (s *stubProvider) Healthy(ctx context.Context) bool { return true }

func threePodSnapshot() model.ClusterSnapshot {
	return model.NewClusterSnapshot(
		[]model.PodRecord{
			{Name: "web-7f8c", Namespace: "default", Status: "Running"},
			{Name: "api-0", Namespace: "default", Status: "Running"},
			{Name: "worker-1", Namespace: "default", Status: "Pending"},
		},
		[]model.DeploymentRecord{{Name: "web", DesiredReplicas: 2, AvailableReplicas: 2}},
		[]model.NodeRecord{{Name: "node-a", Status: "Ready"}},
		nil,
	)
}

func newTestHandler(t *testing.T, fc *fakeCollector, sp *stubProvider, rules *RuleEngine) *Handler {
	t.Helper()
	redactor, err := redact.New(nil, testLogger())
	if err != nil {
		t.Fatalf("redact.New: %v", err)
	}
	h, err := NewHandler(HandlerOptions{
		Collector: fc,
		Provider:  sp,
		Builder:   prompt.NewBuilder("", ""),
		Redactor:  redactor,
		Rules:     rules,
		Metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
		Logger:    testLogger(),
		Namespace: "default",
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func TestAnswerLogRequest(t *testing.T) {
	fc := &fakeCollector{podLogs: map[string]string{"web-7f8c": "line1\nline2"}}
	sp := &stubProvider{answer: "should not be used"}
	h := newTestHandler(t, fc, sp, nil)

	queryText := "log for the pod web-7f8c in the default namespace"
	resp, err := h.Answer(context.Background(), queryText)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if resp.Query != queryText {
		t.Errorf("response query = %q, want input verbatim", resp.Query)
	}
	if resp.Answer != "line1\nline2" {
		t.Errorf("answer = %q, want raw log text", resp.Answer)
	}
	if sp.calls != 0 {
		t.Errorf("provider called %d times on log path, want 0", sp.calls)
	}
	if len(fc.logCalls) != 1 || fc.logCalls[0] != "default/web-7f8c" {
		t.Errorf("log fetches = %v", fc.logCalls)
	}
	if fc.snapshotCalls != 0 {
		t.Errorf("snapshot collected %d times on log path, want 0", fc.snapshotCalls)
	}
}

func TestAnswerLogRequestNoPodName(t *testing.T) {
	fc := &fakeCollector{}
	sp := &stubProvider{}
	h := newTestHandler(t, fc, sp, nil)

	resp, err := h.Answer(context.Background(), "show me some logs")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != "Pod name not found in the query." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if sp.calls != 0 || len(fc.logCalls) != 0 || fc.snapshotCalls != 0 {
		t.Error("no collaborator may be called when extraction fails")
	}
}

func TestAnswerLogRequestFetchFailure(t *testing.T) {
	// An unknown pod degrades to an empty answer, not an error.
	fc := &fakeCollector{podLogs: map[string]string{}}
	sp := &stubProvider{}
	h := newTestHandler(t, fc, sp, nil)

	resp, err := h.Answer(context.Background(), "log for the pod ghost-1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != "" {
		t.Errorf("answer = %q, want empty string", resp.Answer)
	}
}

func TestAnswerLogRequestRedactsSecrets(t *testing.T) {
	fc := &fakeCollector{podLogs: map[string]string{
		"web-1": "starting\nAuthorization: Bearer sk-abc123\ndone",
	}}
	sp := &stubProvider{}
	h := newTestHandler(t, fc, sp, nil)

	resp, err := h.Answer(context.Background(), "log for the pod web-1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if strings.Contains(resp.Answer, "sk-abc123") {
		t.Errorf("answer leaked a credential: %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "starting") || !strings.Contains(resp.Answer, "done") {
		t.Errorf("answer lost non-secret lines: %q", resp.Answer)
	}
}

func TestAnswerGeneralQuestion(t *testing.T) {
	fc := &fakeCollector{snapshot: threePodSnapshot()}
	sp := &stubProvider{answer: "There are 3 pods."}
	h := newTestHandler(t, fc, sp, nil)

	queryText := "how many pods are running"
	resp, err := h.Answer(context.Background(), queryText)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if sp.calls != 1 {
		t.Fatalf("provider calls = %d, want exactly 1", sp.calls)
	}
	if resp.Query != queryText {
		t.Errorf("response query = %q, want input verbatim", resp.Query)
	}
	if resp.Answer != "There are 3 pods." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !strings.Contains(sp.lastUser, queryText) {
		t.Error("user message must contain the literal query text")
	}
	for _, want := range []string{`"pod_count": 3`, `"deployment_count": 1`, `"node_count": 1`} {
		if !strings.Contains(sp.lastUser, want) {
			t.Errorf("user message missing %s", want)
		}
	}
	if sp.lastSystem == "" {
		t.Error("system prompt must not be empty")
	}
}

func TestAnswerGeneralProviderFailure(t *testing.T) {
	fc := &fakeCollector{snapshot: threePodSnapshot()}
	sp := &stubProvider{err: fmt.Errorf("upstream 500")}
	h := newTestHandler(t, fc, sp, nil)

	_, err := h.Answer(context.Background(), "how many pods are running")
	if err == nil {
		t.Fatal("provider failure must propagate")
	}
	if !strings.Contains(err.Error(), "upstream 500") {
		t.Errorf("error %q should carry the provider's message", err)
	}
}

func TestAnswerRuleOverridesClassification(t *testing.T) {
	rules, err := NewRuleEngine([]config.RoutingRule{
		{Name: "catalog-is-general", Expression: `query.contains("catalog")`, Route: "general"},
	}, testLogger())
	if err != nil {
		t.Fatalf("NewRuleEngine: %v", err)
	}

	fc := &fakeCollector{snapshot: threePodSnapshot()}
	sp := &stubProvider{answer: "catalog answer"}
	h := newTestHandler(t, fc, sp, rules)

	// Contains "log" (inside "catalog") so the built-in classification
	// would pick the log route; the rule forces the general route.
	resp, err := h.Answer(context.Background(), "what is in the service catalog")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if sp.calls != 1 {
		t.Errorf("provider calls = %d, want 1", sp.calls)
	}
	if resp.Answer != "catalog answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestNewHandlerValidation(t *testing.T) {
	fc := &fakeCollector{}
	sp := &stubProvider{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	b := prompt.NewBuilder("", "")

	tests := []struct {
		name string
		opts HandlerOptions
	}{
		{"nil collector", HandlerOptions{Provider: sp, Builder: b, Metrics: m, Logger: testLogger()}},
		{"nil provider", HandlerOptions{Collector: fc, Builder: b, Metrics: m, Logger: testLogger()}},
		{"nil builder", HandlerOptions{Collector: fc, Provider: sp, Metrics: m, Logger: testLogger()}},
		{"nil metrics", HandlerOptions{Collector: fc, Provider: sp, Builder: b, Logger: testLogger()}},
		{"nil logger", HandlerOptions{Collector: fc, Provider: sp, Builder: b, Metrics: m}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHandler(tt.opts); err == nil {
				t.Error("expected constructor error")
			}
		})
	}
}
