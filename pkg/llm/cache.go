package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// embeddingCacheTTL bounds how long a cached embedding stays valid. Embeddings
// for a given model are deterministic, so the TTL exists only to bound memory.
const embeddingCacheTTL = 7 * 24 * time.Hour

// CachingClient wraps an LLMClient with a Redis cache for embeddings.
// Generation calls pass through untouched; only CreateEmbedding and
// CreateEmbeddings consult the cache. Cache failures degrade to direct
// provider calls, never to errors.
type CachingClient struct {
	inner  LLMClient
	rdb    *redis.Client
	model  string
	logger *zap.Logger
}

var _ LLMClient = (*CachingClient)(nil)

// NewCachingClient wraps inner with a Redis-backed embedding cache. The
// embedding model name namespaces cache keys so a model change never serves
// stale vectors.
func NewCachingClient(inner LLMClient, rdb *redis.Client, embeddingModel string, logger *zap.Logger) *CachingClient {
	return &CachingClient{
		inner:  inner,
		rdb:    rdb,
		model:  embeddingModel,
		logger: logger.Named("embedding-cache"),
	}
}

func (c *CachingClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	return c.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
}

func (c *CachingClient) StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, onToken TokenCallback) (string, error) {
	return c.inner.StreamResponse(ctx, prompt, systemMessage, temperature, onToken)
}

func (c *CachingClient) GetModel() string {
	return c.inner.GetModel()
}

func (c *CachingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	key := c.cacheKey(input)

	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	embedding, err := c.inner.CreateEmbedding(ctx, input)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, embedding)
	return embedding, nil
}

func (c *CachingClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	results := make([][]float32, len(inputs))
	missing := make([]string, 0, len(inputs))
	missingIdx := make([]int, 0, len(inputs))

	for i, input := range inputs {
		if cached, ok := c.lookup(ctx, c.cacheKey(input)); ok {
			results[i] = cached
			continue
		}
		missing = append(missing, input)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	fetched, err := c.inner.CreateEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, errors.New("embedding count mismatch from provider")
	}

	for j, embedding := range fetched {
		i := missingIdx[j]
		results[i] = embedding
		c.store(ctx, c.cacheKey(inputs[i]), embedding)
	}

	return results, nil
}

func (c *CachingClient) cacheKey(input string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + input))
	return "embedding:" + hex.EncodeToString(sum[:])
}

func (c *CachingClient) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("cache lookup failed", zap.Error(err))
		}
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(raw, &embedding); err != nil {
		c.logger.Warn("discarding malformed cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return embedding, true
}

func (c *CachingClient) store(ctx context.Context, key string, embedding []float32) {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, embeddingCacheTTL).Err(); err != nil {
		c.logger.Debug("cache store failed", zap.Error(err))
	}
}
