package provider

import (
	"context"
	"log/slog"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// FallbackProvider answers without calling any AI backend. It returns the
// collected context document verbatim, prefixed with a notice, so operators
// still see the raw cluster data when the configured backend is unavailable.
type FallbackProvider struct {
	logger *slog.Logger
}

// NewFallbackProvider creates the no-AI fallback.
func NewFallbackProvider(logger *slog.Logger) *FallbackProvider {
	return &FallbackProvider{logger: logger}
}

// Name returns the backend identifier.
func (f *FallbackProvider) Name() string {
	return "fallback"
}

const fallbackNotice = "AI analysis is currently unavailable. Raw cluster context follows.\n\n"

// Complete echoes the user prompt back with a notice. The user prompt
// contains the serialized cluster context, so no information is lost.
func (f *FallbackProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	if f.logger != nil {
		f.logger.Warn("serving fallback completion, no AI backend invoked")
	}
	return &Completion{
		Text:   fallbackNotice + userPrompt,
		Tokens: model.TokenUsage{},
	}, nil
}

// Healthy always reports true. The fallback has no external dependencies.
func (f *FallbackProvider) Healthy(ctx context.Context) bool {
	return true
}
