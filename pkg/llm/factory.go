package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
)

// NewFromConfig builds the LLM client described by the server configuration.
// For the anthropic provider, embeddings are served by a secondary
// OpenAI-compatible client pointed at the configured embedding endpoint.
func NewFromConfig(cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		return NewClient(&Config{
			BaseURL:          cfg.LLMBaseURL,
			Model:            cfg.LLMModel,
			APIKey:           cfg.LLMAPIKey,
			EmbeddingBaseURL: cfg.EmbeddingURL(),
			EmbeddingModel:   cfg.EmbeddingModel,
			MaxTokens:        cfg.MaxResponseTokens,
		}, logger)

	case "anthropic":
		var embedder LLMClient
		if cfg.EmbeddingURL() != "" {
			// The embedder reuses the OpenAI-compatible client with a
			// placeholder generation model; only its embedding path is used.
			emb, err := NewClient(&Config{
				BaseURL:        cfg.EmbeddingURL(),
				Model:          cfg.EmbeddingModel,
				APIKey:         cfg.LLMAPIKey,
				EmbeddingModel: cfg.EmbeddingModel,
			}, logger)
			if err != nil {
				return nil, fmt.Errorf("create embedding client: %w", err)
			}
			embedder = emb
		}

		return NewAnthropicClient(&AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.MaxResponseTokens,
			Embedder:  embedder,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
