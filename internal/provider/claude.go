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
	defaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
	claudeHTTPTimeout   = 120 * time.Second
)

// ClaudeProvider calls the Anthropic Messages API directly.
type ClaudeProvider struct {
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	keySource   KeySource
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClaudeConfig holds configuration for the Claude provider.
type ClaudeConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// APIURL overrides the default Anthropic API endpoint (for testing).
	APIURL string
}

// NewClaudeProvider creates a new Anthropic-backed provider.
func NewClaudeProvider(cfg ClaudeConfig, keySource KeySource, logger *slog.Logger) (*ClaudeProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("claude: model must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("claude: maxTokens must be > 0, got %d", cfg.MaxTokens)
	}
	if keySource == nil {
		return nil, fmt.Errorf("claude: keySource must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("claude: logger must not be nil")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAnthropicURL
	}

	return &ClaudeProvider{
		apiURL:      apiURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		keySource:   keySource,
		httpClient:  &http.Client{Timeout: claudeHTTPTimeout},
		logger:      logger,
	}, nil
}

// Name returns the backend identifier.
func (c *ClaudeProvider) Name() string {
	return "claude"
}

// claudeRequest is the Anthropic Messages API request body.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the Anthropic Messages API response body.
type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
	Usage   claudeUsage          `json:"usage"`
	Error   *claudeError         `json:"error,omitempty"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete sends the instruction set to the Anthropic Messages API.
func (c *ClaudeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	apiKey, err := c.keySource.ReadKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("claude: reading API key: %w", err)
	}

	reqBody := claudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      systemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("claude: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("claude: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	c.logger.Info("sending completion request to Anthropic", "model", c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("claude: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return nil, fmt.Errorf("claude: parsing response JSON: %w", err)
	}

	if claudeResp.Error != nil {
		return nil, fmt.Errorf("claude: API error: %s: %s", claudeResp.Error.Type, claudeResp.Error.Message)
	}

	text := ""
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("claude: response contained no text content")
	}

	tokens := model.TokenUsage{
		Input:  claudeResp.Usage.InputTokens,
		Output: claudeResp.Usage.OutputTokens,
	}

	c.logger.Info("received Anthropic completion",
		"input_tokens", tokens.Input,
		"output_tokens", tokens.Output,
	)

	return &Completion{
		Text:   text,
		Tokens: tokens,
	}, nil
}

// Healthy checks whether the backend is usable by verifying that the API key
// can be read.
func (c *ClaudeProvider) Healthy(ctx context.Context) bool {
	if _, err := c.keySource.ReadKey(ctx); err != nil {
		c.logger.Warn("claude health check failed: cannot read API key", "error", err)
		return false
	}
	return true
}
