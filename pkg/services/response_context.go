package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/similarity"
)

// ScoredFact pairs a stored fact with its similarity to a query.
type ScoredFact struct {
	Fact  *models.Fact `json:"fact"`
	Score float64      `json:"score"`
}

// ResponseContextService selects the stored facts that should ground a
// generated response or answer a search query.
type ResponseContextService interface {
	// BuildContext returns the facts most relevant to an observation,
	// falling back to the most recent facts when similarity search is
	// unavailable or empty.
	BuildContext(ctx context.Context, observationText string) ([]*models.Fact, error)

	// Search runs a pure similarity search with explicit limits and no
	// recency fallback. topK and minScore fall back to configured
	// defaults when zero.
	Search(ctx context.Context, query string, topK int, minScore float64) ([]ScoredFact, error)
}

type responseContextService struct {
	factRepo  repositories.FactRepository
	llmClient llm.LLMClient
	cfg       *config.PipelineConfig
	logger    *zap.Logger
}

// NewResponseContextService creates a new ResponseContextService.
func NewResponseContextService(
	factRepo repositories.FactRepository,
	llmClient llm.LLMClient,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) ResponseContextService {
	return &responseContextService{
		factRepo:  factRepo,
		llmClient: llmClient,
		cfg:       cfg,
		logger:    logger.Named("response-context"),
	}
}

var _ ResponseContextService = (*responseContextService)(nil)

func (s *responseContextService) BuildContext(ctx context.Context, observationText string) ([]*models.Fact, error) {
	scored, err := s.Search(ctx, observationText, s.cfg.ContextTopK, s.cfg.ContextMinSimilarity)
	if err != nil {
		s.logger.Warn("Similarity search failed, falling back to recent facts",
			zap.Error(err))
		return s.factRepo.ListRecent(ctx, s.cfg.ContextTopK)
	}
	if len(scored) == 0 {
		return s.factRepo.ListRecent(ctx, s.cfg.ContextTopK)
	}

	facts := make([]*models.Fact, len(scored))
	for i, sf := range scored {
		facts[i] = sf.Fact
	}
	return facts, nil
}

func (s *responseContextService) Search(ctx context.Context, query string, topK int, minScore float64) ([]ScoredFact, error) {
	if topK <= 0 {
		topK = s.cfg.ContextTopK
	}
	if minScore == 0 {
		minScore = s.cfg.ContextMinSimilarity
	}

	queryEmbedding, err := s.llmClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	facts, err := s.factRepo.ListEmbedded(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list embedded facts: %w", err)
	}
	if len(facts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(facts))
	for i, f := range facts {
		embeddings[i] = f.Embedding
	}

	matches := similarity.Rank(queryEmbedding, embeddings, topK, minScore)
	scored := make([]ScoredFact, len(matches))
	for i, m := range matches {
		scored[i] = ScoredFact{Fact: facts[m.Index], Score: m.Score}
	}
	return scored, nil
}
