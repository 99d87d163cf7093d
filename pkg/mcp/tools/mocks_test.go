package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

type mockOrchestrator struct {
	processFunc  func(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error)
	processCalls int
}

var _ services.PipelineOrchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) Process(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error) {
	m.processCalls++
	if m.processFunc != nil {
		return m.processFunc(ctx, obs, observer, onToken)
	}
	return &services.PipelineResult{RunID: uuid.New(), Status: models.RunStatusCompleted}, nil
}

type mockContextService struct {
	searchFunc func(ctx context.Context, query string, topK int, minScore float64) ([]services.ScoredFact, error)
}

var _ services.ResponseContextService = (*mockContextService)(nil)

func (m *mockContextService) BuildContext(ctx context.Context, observationText string) ([]*models.Fact, error) {
	return nil, nil
}

func (m *mockContextService) Search(ctx context.Context, query string, topK int, minScore float64) ([]services.ScoredFact, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, topK, minScore)
	}
	return nil, nil
}

type mockFactRepo struct {
	recent []*models.Fact
}

var _ repositories.FactRepository = (*mockFactRepo)(nil)

func (m *mockFactRepo) Create(ctx context.Context, fact *models.Fact) error { return nil }

func (m *mockFactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Fact, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockFactRepo) ListEmbedded(ctx context.Context, limit int) ([]*models.Fact, error) {
	return m.recent, nil
}

func (m *mockFactRepo) ListRecent(ctx context.Context, limit int) ([]*models.Fact, error) {
	if limit > 0 && len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *mockFactRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
