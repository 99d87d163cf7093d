// Package llm provides the engine's AI collaborator clients: chat completion,
// streaming completion, and embeddings over OpenAI-compatible or Anthropic
// endpoints.
package llm

import (
	"context"
)

// GenerateResponseResult carries a completion plus its usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TokenCallback receives partial output during streaming generation.
// It must not block for long; it is called inline on the receive loop.
type TokenCallback func(token string)

// LLMClient defines the interface for generation and embedding operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// StreamResponse generates a chat completion, invoking onToken for each
	// partial chunk. onToken may be nil. Returns the full assembled text.
	StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error)

	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs in order.
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	// GetModel returns the configured generation model name.
	GetModel() string
}

// Ensure the concrete clients implement LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
)
