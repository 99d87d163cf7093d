package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// ============================================================================
// Orchestrator Mock
// ============================================================================

type mockOrchestrator struct {
	processFunc  func(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error)
	processCalls int
	lastObs      services.Observation
}

var _ services.PipelineOrchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) Process(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error) {
	m.processCalls++
	m.lastObs = obs
	if m.processFunc != nil {
		return m.processFunc(ctx, obs, observer, onToken)
	}
	return &services.PipelineResult{
		RunID:  uuid.New(),
		Status: models.RunStatusCompleted,
	}, nil
}

// ============================================================================
// Repository Mocks
// ============================================================================

type mockFactRepo struct {
	facts       map[uuid.UUID]*models.Fact
	recent      []*models.Fact
	deleteCalls []uuid.UUID
	listErr     error
}

var _ repositories.FactRepository = (*mockFactRepo)(nil)

func newMockFactRepo() *mockFactRepo {
	return &mockFactRepo{facts: make(map[uuid.UUID]*models.Fact)}
}

func (m *mockFactRepo) Create(ctx context.Context, fact *models.Fact) error {
	m.facts[fact.ID] = fact
	return nil
}

func (m *mockFactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Fact, error) {
	fact, ok := m.facts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return fact, nil
}

func (m *mockFactRepo) ListEmbedded(ctx context.Context, limit int) ([]*models.Fact, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.recent, nil
}

func (m *mockFactRepo) ListRecent(ctx context.Context, limit int) ([]*models.Fact, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit > 0 && len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *mockFactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleteCalls = append(m.deleteCalls, id)
	if _, ok := m.facts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.facts, id)
	return nil
}

type mockRunRepo struct {
	runs    map[uuid.UUID]*models.PipelineRun
	listErr error
}

var _ repositories.PipelineRunRepository = (*mockRunRepo)(nil)

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[uuid.UUID]*models.PipelineRun)}
}

func (m *mockRunRepo) Create(ctx context.Context, run *models.PipelineRun) error {
	m.runs[run.ID] = run
	return nil
}

func (m *mockRunRepo) Update(ctx context.Context, run *models.PipelineRun) error {
	if _, ok := m.runs[run.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return run, nil
}

func (m *mockRunRepo) ListRecent(ctx context.Context, limit int) ([]*models.PipelineRun, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.PipelineRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	return out, nil
}

type mockStepRepo struct {
	steps []*models.PipelineStep
}

var _ repositories.PipelineStepRepository = (*mockStepRepo)(nil)

func (m *mockStepRepo) Create(ctx context.Context, step *models.PipelineStep) error {
	m.steps = append(m.steps, step)
	return nil
}

func (m *mockStepRepo) Update(ctx context.Context, step *models.PipelineStep) error {
	return nil
}

func (m *mockStepRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.PipelineStep, error) {
	out := make([]*models.PipelineStep, 0)
	for _, step := range m.steps {
		if step.RunID == runID {
			out = append(out, step)
		}
	}
	return out, nil
}

// ============================================================================
// Service Mocks
// ============================================================================

type mockContextService struct {
	searchFunc  func(ctx context.Context, query string, topK int, minScore float64) ([]services.ScoredFact, error)
	searchCalls int
	lastQuery   string
	lastTopK    int
}

var _ services.ResponseContextService = (*mockContextService)(nil)

func (m *mockContextService) BuildContext(ctx context.Context, observationText string) ([]*models.Fact, error) {
	return nil, nil
}

func (m *mockContextService) Search(ctx context.Context, query string, topK int, minScore float64) ([]services.ScoredFact, error) {
	m.searchCalls++
	m.lastQuery = query
	m.lastTopK = topK
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, topK, minScore)
	}
	return nil, nil
}
