package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClaude(t *testing.T, apiURL string) *ClaudeProvider {
	t.Helper()
	p, err := NewClaudeProvider(ClaudeConfig{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 256,
		APIURL:    apiURL,
	}, StaticKeySource("test-key"), testLogger())
	if err != nil {
		t.Fatalf("NewClaudeProvider: %v", err)
	}
	return p
}

func TestClaudeComplete(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContentBlock{
				{Type: "text", Text: "All nodes are "},
				{Type: "text", Text: "Ready."},
			},
			Usage: claudeUsage{InputTokens: 90, OutputTokens: 6},
		})
	}))
	defer srv.Close()

	p := newTestClaude(t, srv.URL)
	completion, err := p.Complete(context.Background(), "system instructions", "user question")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("anthropic-version = %q, want %q", gotVersion, anthropicVersion)
	}
	if gotReq.System != "system instructions" {
		t.Errorf("request system = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if completion.Text != "All nodes are Ready." {
		t.Errorf("completion text = %q, want concatenated text blocks", completion.Text)
	}
	if completion.Tokens.Input != 90 || completion.Tokens.Output != 6 {
		t.Errorf("tokens = %+v", completion.Tokens)
	}
}

func TestClaudeCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(claudeResponse{
			Error: &claudeError{Type: "authentication_error", Message: "invalid x-api-key"},
		})
	}))
	defer srv.Close()

	p := newTestClaude(t, srv.URL)
	_, err := p.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error on 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should mention status code", err)
	}
}

func TestClaudeCompleteNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContentBlock{{Type: "tool_use"}},
		})
	}))
	defer srv.Close()

	p := newTestClaude(t, srv.URL)
	if _, err := p.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error when no text blocks returned")
	}
}

func TestNewClaudeProviderValidation(t *testing.T) {
	if _, err := NewClaudeProvider(ClaudeConfig{MaxTokens: 100}, StaticKeySource("k"), testLogger()); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := NewClaudeProvider(ClaudeConfig{Model: "m"}, StaticKeySource("k"), testLogger()); err == nil {
		t.Error("expected error for zero maxTokens")
	}
	if _, err := NewClaudeProvider(ClaudeConfig{Model: "m", MaxTokens: 100}, nil, testLogger()); err == nil {
		t.Error("expected error for nil keySource")
	}
}
