package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to OpenAI-compatible LLM endpoints for both
// generation and embeddings.
type Client struct {
	client          *openai.Client
	embeddingClient *openai.Client
	model           string
	embeddingModel  string
	maxTokens       int
	logger          *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	BaseURL          string // e.g. "https://api.openai.com/v1" or a local vLLM endpoint
	Model            string // generation model name
	APIKey           string // optional for local endpoints
	EmbeddingBaseURL string // defaults to BaseURL when empty
	EmbeddingModel   string // e.g. "text-embedding-3-small"
	MaxTokens        int    // response token cap; 0 leaves provider default
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	genClient := openai.NewClientWithConfig(clientConfig)

	embClient := genClient
	if cfg.EmbeddingBaseURL != "" && cfg.EmbeddingBaseURL != cfg.BaseURL {
		embConfig := openai.DefaultConfig(cfg.APIKey)
		embConfig.BaseURL = strings.TrimSuffix(cfg.EmbeddingBaseURL, "/")
		embClient = openai.NewClientWithConfig(embConfig)
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	return &Client{
		client:          genClient,
		embeddingClient: embClient,
		model:           cfg.Model,
		embeddingModel:  embeddingModel,
		maxTokens:       cfg.MaxTokens,
		logger:          logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// StreamResponse generates a chat completion over a stream, invoking onToken
// per chunk, and returns the full assembled text.
func (c *Client) StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
		Stream:      true,
	})
	if err != nil {
		c.logger.Error("Failed to create stream", zap.Error(err))
		return "", ClassifyError(err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Error("Stream receive failed",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return "", ClassifyError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onToken != nil {
			onToken(delta)
		}
	}

	c.logger.Debug("Stream completed",
		zap.Int("response_len", sb.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return sb.String(), nil
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	resp, err := c.embeddingClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{input},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", ClassifyError(err))
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	return resp.Data[0].Embedding, nil
}

// CreateEmbeddings generates embeddings for multiple inputs.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := c.embeddingClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", ClassifyError(err))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}

// GetModel returns the configured generation model name.
func (c *Client) GetModel() string {
	return c.model
}
