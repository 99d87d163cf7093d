package llm

import (
	"context"
)

// MockLLMClient is a configurable mock for testing LLM-dependent code.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns an empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// StreamResponseFunc is called when StreamResponse is invoked.
	// If nil, falls back to GenerateResponseFunc and emits the whole content
	// as a single token.
	StreamResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error)

	// CreateEmbeddingFunc is called when CreateEmbedding is invoked.
	// If nil, returns nil slice and nil error.
	CreateEmbeddingFunc func(ctx context.Context, input string) ([]float32, error)

	// CreateEmbeddingsFunc is called when CreateEmbeddings is invoked.
	// If nil, falls back to calling CreateEmbedding per input.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string) ([][]float32, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	GenerateResponseCalls int
	StreamResponseCalls   int
	CreateEmbeddingCalls  int
	CreateEmbeddingsCalls int
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{Model: "mock-model"}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.GenerateResponseCalls++
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// StreamResponse implements LLMClient.
func (m *MockLLMClient) StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error) {
	m.StreamResponseCalls++
	if m.StreamResponseFunc != nil {
		return m.StreamResponseFunc(ctx, prompt, systemMessage, temperature, onToken)
	}
	if m.GenerateResponseFunc != nil {
		result, err := m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
		if err != nil {
			return "", err
		}
		if onToken != nil && result.Content != "" {
			onToken(result.Content)
		}
		return result.Content, nil
	}
	return "", nil
}

// CreateEmbedding implements LLMClient.
func (m *MockLLMClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.CreateEmbeddingCalls++
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input)
	}
	return nil, nil
}

// CreateEmbeddings implements LLMClient.
func (m *MockLLMClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	m.CreateEmbeddingsCalls++
	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs)
	}

	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		emb, err := m.CreateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking counters.
func (m *MockLLMClient) Reset() {
	m.GenerateResponseCalls = 0
	m.StreamResponseCalls = 0
	m.CreateEmbeddingCalls = 0
	m.CreateEmbeddingsCalls = 0
}

// Ensure MockLLMClient implements LLMClient at compile time.
var _ LLMClient = (*MockLLMClient)(nil)
