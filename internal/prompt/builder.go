package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// Builder constructs the two messages sent per general cluster question:
// the system instruction and a user message carrying the serialized cluster
// context document plus the original query.
type Builder struct {
	systemPrompt string
}

// NewBuilder creates a prompt Builder. If systemPromptOverride is non-empty,
// it replaces the default system instruction entirely. systemPromptAppend is
// appended after the system instruction (default or override).
func NewBuilder(systemPromptOverride, systemPromptAppend string) *Builder {
	base := DefaultSystemPrompt
	if strings.TrimSpace(systemPromptOverride) != "" {
		base = systemPromptOverride
	}
	if strings.TrimSpace(systemPromptAppend) != "" {
		base = base + "\n\n" + systemPromptAppend
	}
	return &Builder{systemPrompt: base}
}

// SystemPrompt returns the fully constructed system instruction.
func (b *Builder) SystemPrompt() string {
	return b.systemPrompt
}

// BuildUserPrompt serializes the snapshot into a context document and appends
// the user's query. The query text appears verbatim after the document.
func (b *Builder) BuildUserPrompt(snapshot model.ClusterSnapshot, query string) (string, error) {
	doc, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("prompt: serializing cluster context: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Cluster Context\n\n")
	sb.Write(doc)
	sb.WriteString("\n\n## Question\n\n")
	sb.WriteString(query)
	return sb.String(), nil
}
