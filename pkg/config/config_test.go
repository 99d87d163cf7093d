package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatternList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "is looking at", want: []string{"is looking at"}},
		{name: "multiple with whitespace", input: " a , b ,c", want: []string{"a", "b", "c"}},
		{name: "trailing comma", input: "a,b,", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePatternList(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI: AIConfig{Provider: "openai"},
			Pipeline: PipelineConfig{
				EntitySimilarityThreshold: 0.75,
				EntityCandidateLimit:      3,
				ContextTopK:               5,
			},
		}
	}

	require.NoError(t, valid().validate())

	t.Run("unknown provider", func(t *testing.T) {
		cfg := valid()
		cfg.AI.Provider = "bedrock"
		assert.Error(t, cfg.validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.EntitySimilarityThreshold = 1.5
		assert.Error(t, cfg.validate())
	})

	t.Run("non-positive candidate limit", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.EntityCandidateLimit = 0
		assert.Error(t, cfg.validate())
	})
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "glimpse",
		Password: "secret", Database: "glimpse_engine", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=glimpse password=secret dbname=glimpse_engine sslmode=disable",
		db.ConnectionString())
}

func TestEmbeddingURLFallback(t *testing.T) {
	ai := AIConfig{LLMBaseURL: "http://localhost:8000/v1"}
	assert.Equal(t, "http://localhost:8000/v1", ai.EmbeddingURL())

	ai.EmbeddingBaseURL = "http://localhost:8001/v1"
	assert.Equal(t, "http://localhost:8001/v1", ai.EmbeddingURL())
}
