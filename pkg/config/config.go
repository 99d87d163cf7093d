package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for glimpse-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support
// both. Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3690"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional embedding cache)
	Redis RedisConfig `yaml:"redis"`

	// AI collaborator endpoints
	AI AIConfig `yaml:"ai"`

	// Pipeline heuristics
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"glimpse"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"glimpse_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; when Host is
// empty the engine runs without an embedding cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds generation and embedding endpoint configuration.
// The generation provider can be "openai" (any OpenAI-compatible endpoint,
// including local vLLM/Ollama) or "anthropic". Embeddings always go through
// the OpenAI-compatible embedding endpoint; Anthropic has no embedding API.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	LLMBaseURL string `yaml:"llm_base_url" env:"AI_LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	LLMModel   string `yaml:"llm_model" env:"AI_LLM_MODEL" env-default:"gpt-4o-mini"`
	LLMAPIKey  string `yaml:"-" env:"AI_LLM_API_KEY"` // Secret - not in YAML

	AnthropicModel  string `yaml:"anthropic_model" env:"AI_ANTHROPIC_MODEL" env-default:"claude-3-5-haiku-latest"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML

	EmbeddingBaseURL string `yaml:"embedding_base_url" env:"AI_EMBEDDING_BASE_URL" env-default:""`
	EmbeddingModel   string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`

	MaxResponseTokens int `yaml:"max_response_tokens" env:"AI_MAX_RESPONSE_TOKENS" env-default:"1024"`
}

// PipelineConfig holds the tunable heuristics of the extraction pipeline.
// These are deliberate precision-over-recall knobs, not hard contracts.
type PipelineConfig struct {
	// EntitySimilarityThreshold is the minimum cosine similarity for an
	// existing entity to be considered a dedup candidate.
	EntitySimilarityThreshold float64 `yaml:"entity_similarity_threshold" env:"PIPELINE_ENTITY_SIMILARITY_THRESHOLD" env-default:"0.75"`

	// EntityCandidateLimit caps how many candidates reach LLM arbitration.
	EntityCandidateLimit int `yaml:"entity_candidate_limit" env:"PIPELINE_ENTITY_CANDIDATE_LIMIT" env-default:"3"`

	// ContextTopK is how many stored facts ground a generated response.
	ContextTopK int `yaml:"context_top_k" env:"PIPELINE_CONTEXT_TOP_K" env-default:"5"`

	// ContextMinSimilarity is the relevance floor for grounding facts.
	ContextMinSimilarity float64 `yaml:"context_min_similarity" env:"PIPELINE_CONTEXT_MIN_SIMILARITY" env-default:"0.3"`

	// MinFactLength rejects extracted facts shorter than this many characters.
	MinFactLength int `yaml:"min_fact_length" env:"PIPELINE_MIN_FACT_LENGTH" env-default:"20"`

	// TrivialPatternsStr is a comma-separated list of case-insensitive
	// substrings that mark a fact as ephemeral noise.
	TrivialPatternsStr string `yaml:"trivial_patterns" env:"PIPELINE_TRIVIAL_PATTERNS" env-default:"is looking at,is viewing,screen shows,the screen,currently open"`

	// TrivialPatterns is the parsed form of TrivialPatternsStr.
	TrivialPatterns []string `yaml:"-"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Pipeline.TrivialPatterns = parsePatternList(cfg.Pipeline.TrivialPatternsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai.provider %q (expected openai or anthropic)", c.AI.Provider)
	}

	if c.Pipeline.EntitySimilarityThreshold < -1 || c.Pipeline.EntitySimilarityThreshold > 1 {
		return fmt.Errorf("entity_similarity_threshold must be in [-1, 1], got %f", c.Pipeline.EntitySimilarityThreshold)
	}
	if c.Pipeline.EntityCandidateLimit <= 0 {
		return fmt.Errorf("entity_candidate_limit must be positive, got %d", c.Pipeline.EntityCandidateLimit)
	}
	if c.Pipeline.ContextTopK <= 0 {
		return fmt.Errorf("context_top_k must be positive, got %d", c.Pipeline.ContextTopK)
	}

	return nil
}

// parsePatternList splits a comma-separated pattern list, trimming whitespace
// and dropping empty segments.
func parsePatternList(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// EmbeddingURL returns the embedding endpoint, falling back to the main LLM
// endpoint when no dedicated embedding endpoint is configured.
func (c *AIConfig) EmbeddingURL() string {
	if c.EmbeddingBaseURL != "" {
		return c.EmbeddingBaseURL
	}
	return c.LLMBaseURL
}
