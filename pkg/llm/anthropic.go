package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient provides generation via the Anthropic Messages API.
// Anthropic has no embedding endpoint, so embedding calls are delegated to an
// OpenAI-compatible embedder when one is configured and fail otherwise; the
// pipeline treats embedding failure as "empty embedding" everywhere it can.
type AnthropicClient struct {
	client    *anthropic.Client
	embedder  LLMClient
	model     string
	maxTokens int
	logger    *zap.Logger
}

// AnthropicConfig holds configuration for creating an Anthropic client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// Embedder handles CreateEmbedding calls; may be nil.
	Embedder LLMClient
}

// NewAnthropicClient creates an Anthropic-backed LLM client.
func NewAnthropicClient(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey),
		embedder:  cfg.Embedder,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm-anthropic"),
	}, nil
}

// GenerateResponse generates a completion via the Messages API.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	temp := float32(temperature)

	c.logger.Debug("Anthropic request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("Anthropic request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	c.logger.Info("Anthropic request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          resp.GetFirstContentText(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// StreamResponse generates a completion over a stream, invoking onToken per
// text delta, and returns the full assembled text.
func (c *AnthropicClient) StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error) {
	temp := float32(temperature)

	var sb strings.Builder
	_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
		MessagesRequest: anthropic.MessagesRequest{
			Model:       anthropic.Model(c.model),
			System:      systemMessage,
			MaxTokens:   c.maxTokens,
			Temperature: &temp,
			Messages: []anthropic.Message{
				anthropic.NewUserTextMessage(prompt),
			},
		},
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil {
				return
			}
			sb.WriteString(*data.Delta.Text)
			if onToken != nil {
				onToken(*data.Delta.Text)
			}
		},
	})
	if err != nil {
		c.logger.Error("Anthropic stream failed", zap.Error(err))
		return "", ClassifyError(err)
	}

	return sb.String(), nil
}

// CreateEmbedding delegates to the configured embedder.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("no embedding endpoint configured for anthropic provider")
	}
	return c.embedder.CreateEmbedding(ctx, input)
}

// CreateEmbeddings delegates to the configured embedder.
func (c *AnthropicClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("no embedding endpoint configured for anthropic provider")
	}
	return c.embedder.CreateEmbeddings(ctx, inputs)
}

// GetModel returns the configured generation model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
