// Package provider — openai.go implements the OpenAI Chat Completions API
// backend.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

const (
	defaultOpenAIURL  = "https://api.openai.com/v1/chat/completions"
	openAIHTTPTimeout = 120 * time.Second
)

// OpenAIProvider calls the OpenAI Chat Completions API.
type OpenAIProvider struct {
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	keySource   KeySource
	httpClient  *http.Client
	logger      *slog.Logger
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// APIURL overrides the default OpenAI API endpoint (for testing).
	APIURL string
}

// NewOpenAIProvider creates a new OpenAI-backed provider.
func NewOpenAIProvider(cfg OpenAIConfig, keySource KeySource, logger *slog.Logger) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("openai: maxTokens must be > 0, got %d", cfg.MaxTokens)
	}
	if keySource == nil {
		return nil, fmt.Errorf("openai: keySource must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("openai: logger must not be nil")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultOpenAIURL
	}

	return &OpenAIProvider{
		apiURL:      apiURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		keySource:   keySource,
		httpClient:  &http.Client{Timeout: openAIHTTPTimeout},
		logger:      logger,
	}, nil
}

// Name returns the backend identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// openAIRequest is the OpenAI Chat Completions API request body.
type openAIRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

// openAIMessage represents a message in the OpenAI Chat Completions API.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponse is the OpenAI Chat Completions API response body.
type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the instruction set to the OpenAI Chat Completions API.
func (o *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	apiKey, err := o.keySource.ReadKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: reading API key: %w", err)
	}

	reqBody := openAIRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("openai: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	o.logger.Info("sending completion request to OpenAI", "model", o.model)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("openai: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return nil, fmt.Errorf("openai: parsing response JSON: %w", err)
	}

	if openAIResp.Error != nil {
		return nil, fmt.Errorf("openai: API error: %s: %s", openAIResp.Error.Type, openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response contained no choices")
	}

	tokens := model.TokenUsage{
		Input:  openAIResp.Usage.PromptTokens,
		Output: openAIResp.Usage.CompletionTokens,
	}

	o.logger.Info("received OpenAI completion",
		"input_tokens", tokens.Input,
		"output_tokens", tokens.Output,
	)

	return &Completion{
		Text:   openAIResp.Choices[0].Message.Content,
		Tokens: tokens,
	}, nil
}

// Healthy checks whether the backend is usable by verifying that the API key
// can be read.
func (o *OpenAIProvider) Healthy(ctx context.Context) bool {
	if _, err := o.keySource.ReadKey(ctx); err != nil {
		o.logger.Warn("openai health check failed: cannot read API key", "error", err)
		return false
	}
	return true
}
