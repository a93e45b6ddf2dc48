package llm

import (
	"context"

	"github.com/moot-ai/moot-backend/internal/core"
)

// LLMProvider defines the interface for LLM backends.
type LLMProvider interface {
	// SendMessage sends a non-streaming request.
	SendMessage(ctx context.Context, system string, messages []core.Message,
		tools []core.ToolDefinition) (*core.CompletionResponse, error)

	// SendMessageStream sends a streaming request, calling onDelta for each text chunk.
	SendMessageStream(ctx context.Context, system string, messages []core.Message,
		tools []core.ToolDefinition, onDelta func(string)) (*core.CompletionResponse, error)

	// ProviderName returns the provider identifier (e.g., "gemini", "openai").
	ProviderName() string

	// ModelName returns the model being used.
	ModelName() string
}
