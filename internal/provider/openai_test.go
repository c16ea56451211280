package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOpenAI(t *testing.T, apiURL string) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(OpenAIConfig{
		Model:     "gpt-4o",
		MaxTokens: 256,
		APIURL:    apiURL,
	}, StaticKeySource("test-key"), testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{
				{Message: openAIMessage{Role: "assistant", Content: "There are 3 pods running."}},
			},
			Usage: openAIUsage{PromptTokens: 120, CompletionTokens: 8},
		})
	}))
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	completion, err := p.Complete(context.Background(), "system instructions", "user question")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotReq.Model != "gpt-4o" {
		t.Errorf("request model = %q, want gpt-4o", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if completion.Text != "There are 3 pods running." {
		t.Errorf("completion text = %q", completion.Text)
	}
	if completion.Tokens.Input != 120 || completion.Tokens.Output != 8 {
		t.Errorf("tokens = %+v, want input=120 output=8", completion.Tokens)
	}
}

func TestOpenAICompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	_, err := p.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error on 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q should mention status code", err)
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{
			Error: &openAIError{Message: "model not found", Type: "invalid_request_error"},
		})
	}))
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	_, err := p.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error on API error body")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error %q should carry API message", err)
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{})
	}))
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	if _, err := p.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestNewOpenAIProviderValidation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    OpenAIConfig
		key    KeySource
		logger *slog.Logger
	}{
		{"empty model", OpenAIConfig{MaxTokens: 100}, StaticKeySource("k"), testLogger()},
		{"zero maxTokens", OpenAIConfig{Model: "gpt-4o"}, StaticKeySource("k"), testLogger()},
		{"nil keySource", OpenAIConfig{Model: "gpt-4o", MaxTokens: 100}, nil, testLogger()},
		{"nil logger", OpenAIConfig{Model: "gpt-4o", MaxTokens: 100}, StaticKeySource("k"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOpenAIProvider(tt.cfg, tt.key, tt.logger); err == nil {
				t.Error("expected constructor error")
			}
		})
	}
}

func TestOpenAIHealthy(t *testing.T) {
	p := newTestOpenAI(t, "http://unused.invalid")
	if !p.Healthy(context.Background()) {
		t.Error("provider with readable key should be healthy")
	}

	p2, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o", MaxTokens: 100}, EnvKeySource{Var: "KQA_TEST_MISSING_KEY"}, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if p2.Healthy(context.Background()) {
		t.Error("provider with unreadable key should be unhealthy")
	}
}
