// Package provider defines the ChatProvider interface and its chat completion
// backends (OpenAI, Anthropic Claude, AWS Bedrock), plus resilience wrappers
// for circuit breaking and token budget enforcement.
package provider

import (
	"context"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// Completion is the result of one chat completion call.
type Completion struct {
	// Text is the generated answer.
	Text string

	// Tokens holds the token usage reported by the backend, when available.
	Tokens model.TokenUsage
}

// ChatProvider produces a completion from a system instruction and a user
// message. Implementations must be safe for concurrent use.
type ChatProvider interface {
	// Name returns the backend identifier (e.g., "openai", "claude").
	Name() string

	// Complete sends the two-message instruction set to the backend and
	// returns the generated text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)

	// Healthy reports whether the backend is configured and reachable.
	Healthy(ctx context.Context) bool
}
