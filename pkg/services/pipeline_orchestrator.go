package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/prompts"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/retry"
)

// Generation temperatures per stage. Classification and arbitration want
// determinism; response generation wants some variety.
const (
	classifyTemperature = 0.0
	extractTemperature  = 0.2
	responseTemperature = 0.7
)

// llmRetryConfig backs off transient generation failures. Permanent errors
// (auth, malformed requests) fail immediately.
var llmRetryConfig = &retry.Config{
	MaxRetries:   3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.1,
}

// generateWithRetry runs one generation call through the retry policy.
func generateWithRetry(ctx context.Context, client llm.LLMClient, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, llmRetryConfig, func() error {
		var callErr error
		result, callErr = client.GenerateResponse(ctx, prompt, system, temperature)
		return callErr
	})
	return result, err
}

// PipelineOrchestrator runs the full observation-to-graph pipeline. Safe for
// concurrent use: all per-run state lives in a run-scoped value, including
// the entity-resolution cache.
type PipelineOrchestrator interface {
	// Process executes one pipeline run over an observation. The observer
	// and onToken may be nil; onToken receives partial response tokens while
	// the action branch streams its reply. A non-nil error is returned only
	// when the run as a whole failed; single-branch failures yield a
	// completed result carrying an error message.
	Process(ctx context.Context, obs Observation, observer ProgressObserver, onToken llm.TokenCallback) (*PipelineResult, error)
}

// ResolverFactory builds a fresh EntityResolutionService per run, so each
// run owns its resolution cache.
type ResolverFactory func() EntityResolutionService

type pipelineOrchestrator struct {
	factRepo     repositories.FactRepository
	relationRepo repositories.RelationRepository
	llmClient    llm.LLMClient
	parser       *ExtractionParser
	quality      *FactQualityFilter
	contextSvc   ResponseContextService
	recorder     *RunRecorder
	newResolver  ResolverFactory
	logger       *zap.Logger
}

// NewPipelineOrchestrator creates a new PipelineOrchestrator.
func NewPipelineOrchestrator(
	factRepo repositories.FactRepository,
	relationRepo repositories.RelationRepository,
	llmClient llm.LLMClient,
	parser *ExtractionParser,
	quality *FactQualityFilter,
	contextSvc ResponseContextService,
	recorder *RunRecorder,
	newResolver ResolverFactory,
	logger *zap.Logger,
) PipelineOrchestrator {
	return &pipelineOrchestrator{
		factRepo:     factRepo,
		relationRepo: relationRepo,
		llmClient:    llmClient,
		parser:       parser,
		quality:      quality,
		contextSvc:   contextSvc,
		recorder:     recorder,
		newResolver:  newResolver,
		logger:       logger.Named("pipeline"),
	}
}

var _ PipelineOrchestrator = (*pipelineOrchestrator)(nil)

// runState holds everything scoped to a single observation's run.
type runState struct {
	o        *pipelineOrchestrator
	run      *models.PipelineRun
	resolver EntityResolutionService
	observer ProgressObserver
	onToken  llm.TokenCallback
	fraction float64

	savedFacts []*models.Fact
	// resolvedByName maps extracted entity names to their resolved
	// entities for relation creation.
	resolvedByName map[string]*models.Entity
}

func (p *pipelineOrchestrator) Process(ctx context.Context, obs Observation, observer ProgressObserver, onToken llm.TokenCallback) (*PipelineResult, error) {
	if strings.TrimSpace(obs.Text) == "" {
		return nil, fmt.Errorf("observation text cannot be empty")
	}

	rs := &runState{
		o:              p,
		resolver:       p.newResolver(),
		observer:       observer,
		onToken:        onToken,
		resolvedByName: make(map[string]*models.Entity),
	}
	defer rs.resolver.ClearCache()

	rs.report(StageInitializing, 0.02, "starting run")
	rs.run = p.recorder.StartRun(ctx, obs.SourceRef)

	p.logger.Info("Pipeline run started",
		zap.String("run_id", rs.run.ID.String()),
		zap.String("source_ref", obs.SourceRef))

	kind, obsContext, err := rs.classify(ctx, obs)
	if err != nil {
		return rs.fail(ctx, fmt.Errorf("classify observation: %w", err))
	}
	rs.run.ActionKind = kind

	var memoryErr, actionErr error
	if kind.WantsMemory() {
		memoryErr = rs.runMemoryBranch(ctx, obs)
	}

	var responseText string
	if kind.WantsAction() {
		responseText, actionErr = rs.runActionBranch(ctx, obs, obsContext)
	}

	// A run errors only when every requested branch failed. A single
	// failed branch leaves the other branch's results standing.
	if bothBranchesFailed(kind, memoryErr, actionErr) {
		return rs.fail(ctx, errors.Join(memoryErr, actionErr))
	}

	rs.run.Status = models.RunStatusCompleted
	if memoryErr != nil {
		rs.run.ErrorMessage = fmt.Sprintf("memory branch failed: %v", memoryErr)
	} else if actionErr != nil {
		rs.run.ErrorMessage = fmt.Sprintf("action branch failed: %v", actionErr)
	}
	p.recorder.FinishRun(ctx, rs.run)
	rs.report(StageComplete, 1.0, "run complete")

	p.logger.Info("Pipeline run completed",
		zap.String("run_id", rs.run.ID.String()),
		zap.String("action_kind", string(kind)),
		zap.Int("facts_created", rs.run.FactsCreated),
		zap.Int("entities_created", rs.run.EntitiesCreated),
		zap.Int("relations_created", rs.run.RelationsCreated))

	return &PipelineResult{
		RunID:            rs.run.ID,
		Status:           rs.run.Status,
		ActionKind:       kind,
		FactsCreated:     rs.run.FactsCreated,
		EntitiesCreated:  rs.run.EntitiesCreated,
		RelationsCreated: rs.run.RelationsCreated,
		ResponseText:     responseText,
		ErrorMessage:     rs.run.ErrorMessage,
	}, nil
}

func bothBranchesFailed(kind models.ActionKind, memoryErr, actionErr error) bool {
	if kind.WantsMemory() && memoryErr == nil {
		return false
	}
	if kind.WantsAction() && actionErr == nil {
		return false
	}
	return memoryErr != nil || actionErr != nil
}

// classify runs the action-classification stage.
func (rs *runState) classify(ctx context.Context, obs Observation) (models.ActionKind, string, error) {
	rs.report(StageAnalyzing, 0.1, "classifying observation")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageAnalyzing)

	result, err := generateWithRetry(ctx, rs.o.llmClient,
		prompts.BuildClassificationPrompt(obs.Text),
		prompts.BuildClassificationSystemMessage(),
		classifyTemperature)
	if err != nil {
		rs.o.recorder.FailStep(ctx, step, err)
		return "", "", err
	}

	kind, obsContext := rs.o.parser.ParseActionClassification(result.Content)
	rs.o.recorder.CompleteStep(ctx, step, string(kind))
	return kind, obsContext, nil
}

// runMemoryBranch extracts, embeds, and persists facts, then builds the
// entity graph over them. Item-level failures degrade; only a failure of the
// extraction call itself fails the branch.
func (rs *runState) runMemoryBranch(ctx context.Context, obs Observation) error {
	facts, err := rs.extractFacts(ctx, obs)
	if err != nil {
		return err
	}
	if len(facts) == 0 {
		rs.o.logger.Info("No facts survived extraction",
			zap.String("run_id", rs.run.ID.String()))
		return nil
	}

	rs.embedAndSaveFacts(ctx, obs, facts)
	if len(rs.savedFacts) == 0 {
		return fmt.Errorf("no facts could be saved")
	}

	extraction, err := rs.extractEntities(ctx)
	if err != nil {
		// Saved facts stay in place; they have value without their graph.
		return err
	}
	if len(extraction.Entities) == 0 {
		return nil
	}

	resolved := rs.resolveEntities(ctx, extraction.Entities)
	rs.createRelations(ctx, resolved, extraction.Relations)
	return nil
}

func (rs *runState) extractFacts(ctx context.Context, obs Observation) ([]models.ExtractedFact, error) {
	rs.report(StageExtractingMemories, 0.2, "extracting facts")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageExtractingMemories)

	result, err := generateWithRetry(ctx, rs.o.llmClient,
		prompts.BuildFactExtractionPrompt(obs.Text),
		prompts.BuildFactExtractionSystemMessage(),
		extractTemperature)
	if err != nil {
		rs.o.recorder.FailStep(ctx, step, err)
		return nil, fmt.Errorf("fact extraction call: %w", err)
	}

	extracted := rs.o.parser.ParseExtractedFacts(result.Content)
	kept := rs.o.quality.Filter(extracted)
	rs.o.recorder.CompleteStep(ctx, step,
		fmt.Sprintf("%d extracted, %d kept", len(extracted), len(kept)))
	return kept, nil
}

// embedAndSaveFacts embeds and persists each fact in order. An embedding
// failure stores the fact with an empty embedding; a storage failure drops
// that fact and continues.
func (rs *runState) embedAndSaveFacts(ctx context.Context, obs Observation, facts []models.ExtractedFact) {
	rs.report(StageGeneratingEmbeddings, 0.3, "embedding facts")
	embedStep := rs.o.recorder.StartStep(ctx, rs.run.ID, StageGeneratingEmbeddings)

	embeddings := make([][]float32, len(facts))
	for i, fact := range facts {
		embedding, err := rs.o.llmClient.CreateEmbedding(ctx, fact.Content)
		if err != nil {
			rs.o.logger.Warn("Embedding failed, storing fact without one",
				zap.String("run_id", rs.run.ID.String()),
				zap.Error(err))
			embedding = []float32{}
		}
		embeddings[i] = embedding
		rs.reportItem(StageGeneratingEmbeddings, 0.3, 0.45, i+1, len(facts), "embedding facts")
	}
	rs.o.recorder.CompleteStep(ctx, embedStep, fmt.Sprintf("%d facts embedded", len(facts)))

	rs.report(StageSavingData, 0.5, "saving facts")
	saveStep := rs.o.recorder.StartStep(ctx, rs.run.ID, StageSavingData)

	for i, extracted := range facts {
		fact := &models.Fact{
			Content:         extracted.Content,
			Kind:            extracted.Kind,
			Importance:      extracted.Importance,
			Context:         extracted.Context,
			StructuredData:  extracted.StructuredData,
			Embedding:       embeddings[i],
			SourceRef:       obs.SourceRef,
			SourceImagePath: obs.ImagePath,
		}
		if err := rs.o.factRepo.Create(ctx, fact); err != nil {
			rs.o.logger.Error("Failed to save fact",
				zap.String("run_id", rs.run.ID.String()),
				zap.Error(err))
			continue
		}
		rs.savedFacts = append(rs.savedFacts, fact)
	}

	rs.run.FactsCreated = len(rs.savedFacts)
	rs.o.recorder.CompleteStep(ctx, saveStep, fmt.Sprintf("%d facts saved", len(rs.savedFacts)))
}

// extractEntities runs batch entity extraction over the saved facts. A
// failure fails the memory branch, but the facts are already stored and are
// never rolled back.
func (rs *runState) extractEntities(ctx context.Context) (models.EntityExtraction, error) {
	rs.report(StageExtractingEntities, 0.6, "extracting entities")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageExtractingEntities)

	result, err := generateWithRetry(ctx, rs.o.llmClient,
		prompts.BuildEntityExtractionPrompt(rs.savedFacts),
		prompts.BuildEntityExtractionSystemMessage(),
		extractTemperature)
	if err != nil {
		rs.o.recorder.FailStep(ctx, step, err)
		return models.EntityExtraction{}, fmt.Errorf("entity extraction call: %w", err)
	}

	extraction := rs.o.parser.ParseEntityExtraction(result.Content)
	rs.o.recorder.CompleteStep(ctx, step,
		fmt.Sprintf("%d entities, %d relations", len(extraction.Entities), len(extraction.Relations)))
	return extraction, nil
}

// resolveEntities resolves each extracted entity in order. A single failed
// resolution is skipped; its mentions simply produce no links.
func (rs *runState) resolveEntities(ctx context.Context, entities []models.ExtractedEntity) []resolvedEntity {
	rs.report(StageResolvingEntities, 0.7, "resolving entities")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageResolvingEntities)

	created := 0
	var resolved []resolvedEntity
	for i, extracted := range entities {
		entity, isNew, err := rs.resolver.Resolve(ctx, extracted, rs.savedFacts)
		if err != nil {
			rs.o.logger.Warn("Entity resolution failed, skipping entity",
				zap.String("run_id", rs.run.ID.String()),
				zap.String("name", extracted.Name),
				zap.Error(err))
			continue
		}
		if isNew {
			created++
		}
		resolved = append(resolved, resolvedEntity{extracted: extracted, entity: entity})
		rs.resolvedByName[extracted.Name] = entity
		rs.reportItem(StageResolvingEntities, 0.7, 0.8, i+1, len(entities), "resolving entities")
	}

	rs.run.EntitiesCreated = created
	rs.o.recorder.CompleteStep(ctx, step,
		fmt.Sprintf("%d resolved, %d created", len(resolved), created))
	return resolved
}

type resolvedEntity struct {
	extracted models.ExtractedEntity
	entity    *models.Entity
}

// createRelations writes fact-to-entity links for each valid mention and
// entity-to-entity edges for each relation with two resolved, distinct
// endpoints. Duplicates and self-loops are skipped silently.
func (rs *runState) createRelations(ctx context.Context, resolved []resolvedEntity, relations []models.ExtractedRelation) {
	rs.report(StageCreatingRelations, 0.85, "creating relations")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageCreatingRelations)

	createdCount := 0
	for _, re := range resolved {
		for _, idx := range re.extracted.MentionIndices {
			if idx < 0 || idx >= len(rs.savedFacts) {
				continue
			}
			factID := rs.savedFacts[idx].ID
			link := &models.Relation{
				Kind:           models.RelationKindFactEntity,
				TargetEntityID: re.entity.ID,
				FactID:         &factID,
			}
			if rs.createRelation(ctx, link) {
				createdCount++
			}
		}
	}

	for _, rel := range relations {
		source, okS := rs.resolvedByName[rel.SourceName]
		target, okT := rs.resolvedByName[rel.TargetName]
		if !okS || !okT || source.ID == target.ID {
			continue
		}
		edge := &models.Relation{
			Kind:           models.RelationKindEntityEntity,
			SourceEntityID: source.ID,
			TargetEntityID: target.ID,
			RelationType:   rel.RelationType,
			Description:    rel.Description,
		}
		if rs.createRelation(ctx, edge) {
			createdCount++
		}
	}

	rs.run.RelationsCreated = createdCount
	rs.o.recorder.CompleteStep(ctx, step, fmt.Sprintf("%d relations created", createdCount))
}

// createRelation inserts one edge, swallowing duplicates and self-loops.
func (rs *runState) createRelation(ctx context.Context, rel *models.Relation) bool {
	err := rs.o.relationRepo.Create(ctx, rel)
	if err == nil {
		return true
	}
	if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrSelfReference) {
		return false
	}
	rs.o.logger.Warn("Failed to create relation",
		zap.String("run_id", rs.run.ID.String()),
		zap.Error(err))
	return false
}

// runActionBranch builds grounded context and generates a response,
// streaming partial tokens to the run's callback when one was given.
func (rs *runState) runActionBranch(ctx context.Context, obs Observation, obsContext string) (string, error) {
	rs.report(StageGeneratingResponse, 0.9, "generating response")
	step := rs.o.recorder.StartStep(ctx, rs.run.ID, StageGeneratingResponse)

	description := obs.Text
	if summary := rs.describeObservation(ctx, obs); summary != "" {
		description = summary + "\n\n" + obs.Text
	} else if obsContext != "" {
		description = obsContext + "\n\n" + obs.Text
	}

	contextFacts, err := rs.o.contextSvc.BuildContext(ctx, description)
	if err != nil {
		// Respond ungrounded rather than not at all.
		rs.o.logger.Warn("Context building failed, responding without memory",
			zap.String("run_id", rs.run.ID.String()),
			zap.Error(err))
		contextFacts = nil
	}

	// No retry around the stream: a replay would deliver duplicate tokens
	// to the callback.
	content, err := rs.o.llmClient.StreamResponse(ctx,
		prompts.BuildResponsePrompt(description, contextFacts),
		prompts.BuildResponseSystemMessage(),
		responseTemperature,
		rs.onToken)
	if err != nil {
		rs.o.recorder.FailStep(ctx, step, err)
		return "", fmt.Errorf("response generation call: %w", err)
	}

	rs.o.recorder.CompleteStep(ctx, step, fmt.Sprintf("%d context facts", len(contextFacts)))
	return strings.TrimSpace(llm.StripThinking(content)), nil
}

// describeObservation summarizes raw screen content into a short situation
// description feeding context retrieval. A failure falls back to the
// classifier's context text at the call site.
func (rs *runState) describeObservation(ctx context.Context, obs Observation) string {
	result, err := generateWithRetry(ctx, rs.o.llmClient,
		prompts.BuildDescriptionPrompt(obs.Text),
		prompts.BuildDescriptionSystemMessage(),
		extractTemperature)
	if err != nil {
		rs.o.logger.Debug("Observation description failed",
			zap.String("run_id", rs.run.ID.String()),
			zap.Error(err))
		return ""
	}
	return strings.TrimSpace(llm.StripThinking(result.Content))
}

// fail records the run's terminal error state.
func (rs *runState) fail(ctx context.Context, runErr error) (*PipelineResult, error) {
	rs.run.Status = models.RunStatusError
	rs.run.ErrorMessage = runErr.Error()
	rs.o.recorder.FinishRun(ctx, rs.run)
	rs.report(StageError, rs.fraction, runErr.Error())

	rs.o.logger.Error("Pipeline run failed",
		zap.String("run_id", rs.run.ID.String()),
		zap.Error(runErr))

	return &PipelineResult{
		RunID:        rs.run.ID,
		Status:       models.RunStatusError,
		ActionKind:   rs.run.ActionKind,
		FactsCreated: rs.run.FactsCreated,
		ErrorMessage: rs.run.ErrorMessage,
	}, runErr
}

// report emits a progress snapshot, keeping the fraction monotone.
func (rs *runState) report(stage string, fraction float64, message string) {
	if fraction < rs.fraction {
		fraction = rs.fraction
	}
	rs.fraction = fraction
	if rs.observer != nil {
		rs.observer(Progress{Stage: stage, Fraction: fraction, Message: message})
	}
}

// reportItem advances the fraction linearly between from and to as items of
// a batch complete.
func (rs *runState) reportItem(stage string, from, to float64, done, total int, message string) {
	if total <= 0 {
		return
	}
	fraction := from + (to-from)*float64(done)/float64(total)
	rs.report(stage, fraction, fmt.Sprintf("%s (%d/%d)", message, done, total))
}
