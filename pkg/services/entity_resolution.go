package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/prompts"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/similarity"
)

// maxGroundingFacts caps how many mentioning facts accompany an arbitration
// request as context.
const maxGroundingFacts = 3

// EntityResolutionService maps freshly extracted entity mentions onto
// existing or new knowledge-graph entities. Resolution is deliberately
// conservative: when identity is uncertain, a new entity is created rather
// than risking a bad merge.
type EntityResolutionService interface {
	// Resolve returns the persisted entity for an extracted mention,
	// creating one if no existing entity matches, and reports whether a
	// new entity was created. The facts slice is the run's saved-facts
	// batch; mention indices ground arbitration context.
	Resolve(ctx context.Context, extracted models.ExtractedEntity, facts []*models.Fact) (*models.Entity, bool, error)

	// ClearCache drops the per-run resolution cache. Call at run end.
	ClearCache()
}

type entityResolutionService struct {
	entityRepo repositories.EntityRepository
	llmClient  llm.LLMClient
	parser     *ExtractionParser
	cfg        *config.PipelineConfig
	logger     *zap.Logger

	// cache is per-run, keyed by normalized name plus type. Runs never
	// share a resolution service instance, so no locking is needed.
	cache map[string]*models.Entity
}

// NewEntityResolutionService creates a resolution service with an empty
// per-run cache.
func NewEntityResolutionService(
	entityRepo repositories.EntityRepository,
	llmClient llm.LLMClient,
	parser *ExtractionParser,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) EntityResolutionService {
	return &entityResolutionService{
		entityRepo: entityRepo,
		llmClient:  llmClient,
		parser:     parser,
		cfg:        cfg,
		logger:     logger.Named("entity-resolution"),
		cache:      make(map[string]*models.Entity),
	}
}

var _ EntityResolutionService = (*entityResolutionService)(nil)

func (s *entityResolutionService) Resolve(ctx context.Context, extracted models.ExtractedEntity, facts []*models.Fact) (*models.Entity, bool, error) {
	name := strings.TrimSpace(extracted.Name)
	if name == "" {
		return nil, false, fmt.Errorf("cannot resolve entity with empty name")
	}
	entityType := models.NormalizeEntityType(extracted.Type)
	cacheKey := resolutionCacheKey(name, entityType)

	// Step 1: run cache. A hit is revalidated against storage so a cached
	// entity deleted mid-run falls through to fresh resolution.
	if entity, ok := s.cache[cacheKey]; ok {
		current, err := s.entityRepo.GetByID(ctx, entity.ID)
		switch {
		case err == nil:
			return current, false, nil
		case errors.Is(err, apperrors.ErrNotFound):
			delete(s.cache, cacheKey)
		default:
			return nil, false, fmt.Errorf("revalidate cached entity: %w", err)
		}
	}

	// Step 2: exact name+type match in storage.
	entity, err := s.entityRepo.FindByNameAndType(ctx, name, entityType)
	if err != nil {
		return nil, false, fmt.Errorf("exact entity lookup: %w", err)
	}
	if entity != nil {
		s.cache[cacheKey] = entity
		return entity, false, nil
	}

	// Steps 3-4: vector candidates and arbitration. An embedding failure
	// here degrades to creation rather than aborting the run.
	descriptor := entityDescriptor(name, entityType, extracted.Description)
	queryEmbedding, embErr := s.llmClient.CreateEmbedding(ctx, descriptor)
	if embErr != nil {
		s.logger.Warn("Embedding failed during resolution, creating without dedup",
			zap.String("name", name),
			zap.Error(embErr))
	} else {
		matched, err := s.arbitrate(ctx, name, entityType, extracted, queryEmbedding, facts)
		if err != nil {
			s.logger.Warn("Arbitration failed, falling through to creation",
				zap.String("name", name),
				zap.Error(err))
		} else if matched != nil {
			s.cache[cacheKey] = matched
			return matched, false, nil
		}
	}

	// Step 5: create a new entity.
	entity = &models.Entity{
		Name:        name,
		Type:        entityType,
		Description: extracted.Description,
		Embedding:   queryEmbedding,
	}
	if err := s.entityRepo.Create(ctx, entity); err != nil {
		return nil, false, fmt.Errorf("create entity: %w", err)
	}

	s.logger.Debug("Created new entity",
		zap.String("name", name),
		zap.String("type", string(entityType)))

	s.cache[cacheKey] = entity
	return entity, true, nil
}

// arbitrate ranks stored entities against the query embedding and, when
// candidates clear the similarity threshold, asks the model for a binary
// match verdict. Returns nil when nothing matched.
func (s *entityResolutionService) arbitrate(
	ctx context.Context,
	name string,
	entityType models.EntityType,
	extracted models.ExtractedEntity,
	queryEmbedding []float32,
	facts []*models.Fact,
) (*models.Entity, error) {
	stored, err := s.entityRepo.ListEmbedded(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embedded entities: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(stored))
	for i, e := range stored {
		embeddings[i] = e.Embedding
	}

	matches := similarity.Rank(queryEmbedding, embeddings,
		s.cfg.EntityCandidateLimit, s.cfg.EntitySimilarityThreshold)
	if len(matches) == 0 {
		return nil, nil
	}

	candidates := make([]prompts.ArbitrationCandidate, len(matches))
	byID := make(map[string]*models.Entity, len(matches))
	for i, m := range matches {
		e := stored[m.Index]
		candidates[i] = prompts.ArbitrationCandidate{
			ID:          e.ID.String(),
			Name:        e.Name,
			Type:        e.Type,
			Description: e.Description,
			Score:       m.Score,
		}
		byID[e.ID.String()] = e
	}

	grounding := groundingContext(extracted.MentionIndices, facts)
	prompt := prompts.BuildArbitrationPrompt(name, entityType, extracted.Description, grounding, candidates)

	result, err := generateWithRetry(ctx, s.llmClient, prompt, prompts.BuildArbitrationSystemMessage(), 0.1)
	if err != nil {
		return nil, fmt.Errorf("arbitration call: %w", err)
	}

	verdict := s.parser.ParseMatchVerdict(result.Content)
	if !verdict.IsMatch || verdict.TargetID == nil {
		return nil, nil
	}

	// Only accept a verdict naming one of the candidates we presented.
	matchedEntity, ok := byID[verdict.TargetID.String()]
	if !ok {
		s.logger.Debug("Arbitration named an entity outside the candidate list",
			zap.String("target_id", verdict.TargetID.String()))
		return nil, nil
	}

	s.logger.Debug("Arbitration matched existing entity",
		zap.String("name", name),
		zap.String("matched", matchedEntity.Name),
		zap.String("reasoning", verdict.Reasoning))

	return matchedEntity, nil
}

func (s *entityResolutionService) ClearCache() {
	s.cache = make(map[string]*models.Entity)
}

// normalizeEntityName normalizes a mention name: trimmed, lowercased,
// singularized. "Meetings" and "meeting" resolve together.
func normalizeEntityName(name string) string {
	return inflection.Singular(strings.ToLower(strings.TrimSpace(name)))
}

// resolutionCacheKey keys the run cache by normalized name and type, so
// same-named mentions of different types never share an entry.
func resolutionCacheKey(name string, entityType models.EntityType) string {
	return normalizeEntityName(name) + "|" + string(entityType)
}

// entityDescriptor builds the text that gets embedded for an entity. The
// type is part of the descriptor so "Mercury (person)" and "Mercury (topic)"
// embed apart.
func entityDescriptor(name string, entityType models.EntityType, description string) string {
	base := name + " (" + string(entityType) + ")"
	if description == "" {
		return base
	}
	return base + " - " + description
}

// groundingContext collects the contents of up to maxGroundingFacts facts
// the mention indices point at, skipping out-of-range values.
func groundingContext(indices []int, facts []*models.Fact) []string {
	var contents []string
	for _, idx := range indices {
		if idx < 0 || idx >= len(facts) {
			continue
		}
		contents = append(contents, facts[idx].Content)
		if len(contents) == maxGroundingFacts {
			break
		}
	}
	return contents
}
