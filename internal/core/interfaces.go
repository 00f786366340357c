package core

import (
	"context"
)

// LLMClient abstracts the low-level API client (OpenRouter, local LLM, etc).
type LLMClient interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
	ChatCompletionWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}
