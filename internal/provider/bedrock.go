package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockClient is the subset of the Bedrock Runtime API the provider needs.
// It exists so tests can inject a mock.
type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider calls Claude models through AWS Bedrock.
type BedrockProvider struct {
	client      BedrockClient
	modelID     string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// BedrockConfig holds configuration for the Bedrock provider.
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// NewBedrockProvider creates a Bedrock-backed provider using the default AWS
// credential chain for the configured region.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig, logger *slog.Logger) (*BedrockProvider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock: region must not be empty")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading AWS config: %w", err)
	}
	return NewBedrockProviderWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg, logger)
}

// NewBedrockProviderWithClient creates a Bedrock-backed provider with an
// injected client.
func NewBedrockProviderWithClient(client BedrockClient, cfg BedrockConfig, logger *slog.Logger) (*BedrockProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("bedrock: client must not be nil")
	}
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock: modelID must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("bedrock: maxTokens must be > 0, got %d", cfg.MaxTokens)
	}
	if logger == nil {
		return nil, fmt.Errorf("bedrock: logger must not be nil")
	}
	return &BedrockProvider{
		client:      client,
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Name returns the backend identifier.
func (b *BedrockProvider) Name() string {
	return "claude-bedrock"
}

// bedrockAnthropicRequest is the Anthropic-on-Bedrock request body.
type bedrockAnthropicRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

// bedrockAnthropicResponse is the Anthropic-on-Bedrock response body.
type bedrockAnthropicResponse struct {
	Content []claudeContentBlock `json:"content"`
	Usage   claudeUsage          `json:"usage"`
}

// Complete sends the instruction set to Claude through Bedrock.
func (b *BedrockProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	reqBody := bedrockAnthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        b.maxTokens,
		Temperature:      b.temperature,
		System:           systemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshaling request: %w", err)
	}

	b.logger.Info("invoking Bedrock model", "model_id", b.modelID)

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        bodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: invoking model: %w", err)
	}

	var bedrockResp bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &bedrockResp); err != nil {
		return nil, fmt.Errorf("bedrock: parsing response JSON: %w", err)
	}

	text := ""
	for _, block := range bedrockResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("bedrock: response contained no text content")
	}

	tokens := model.TokenUsage{
		Input:  bedrockResp.Usage.InputTokens,
		Output: bedrockResp.Usage.OutputTokens,
	}

	b.logger.Info("received Bedrock completion",
		"input_tokens", tokens.Input,
		"output_tokens", tokens.Output,
	)

	return &Completion{
		Text:   text,
		Tokens: tokens,
	}, nil
}

// Healthy reports whether the provider can serve requests. Credential
// problems surface on the first call, so a constructed client is considered
// healthy.
func (b *BedrockProvider) Healthy(ctx context.Context) bool {
	return b.client != nil
}
