package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
)

// ============================================================================
// In-memory repository mocks shared by service tests
// ============================================================================

type mockFactRepo struct {
	facts     []*models.Fact
	createErr error
}

func (m *mockFactRepo) Create(ctx context.Context, fact *models.Fact) error {
	if m.createErr != nil {
		return m.createErr
	}
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	m.facts = append(m.facts, fact)
	return nil
}

func (m *mockFactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Fact, error) {
	for _, f := range m.facts {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFactRepo) ListEmbedded(ctx context.Context, limit int) ([]*models.Fact, error) {
	var out []*models.Fact
	for _, f := range m.facts {
		if len(f.Embedding) > 0 {
			out = append(out, f)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockFactRepo) ListRecent(ctx context.Context, limit int) ([]*models.Fact, error) {
	// Newest are appended last.
	var out []*models.Fact
	for i := len(m.facts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.facts[i])
	}
	return out, nil
}

func (m *mockFactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, f := range m.facts {
		if f.ID == id {
			m.facts = append(m.facts[:i], m.facts[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

var _ repositories.FactRepository = (*mockFactRepo)(nil)

type mockEntityRepo struct {
	entities  []*models.Entity
	createErr error
}

func (m *mockEntityRepo) Create(ctx context.Context, entity *models.Entity) error {
	if m.createErr != nil {
		return m.createErr
	}
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	m.entities = append(m.entities, entity)
	return nil
}

func (m *mockEntityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	for _, e := range m.entities {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockEntityRepo) FindByNameAndType(ctx context.Context, name string, entityType models.EntityType) (*models.Entity, error) {
	for _, e := range m.entities {
		if strings.EqualFold(e.Name, name) && e.Type == entityType {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEntityRepo) ListEmbedded(ctx context.Context) ([]*models.Entity, error) {
	var out []*models.Entity
	for _, e := range m.entities {
		if len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ repositories.EntityRepository = (*mockEntityRepo)(nil)

type mockRelationRepo struct {
	relations []*models.Relation
	createErr error
}

func (m *mockRelationRepo) Create(ctx context.Context, rel *models.Relation) error {
	if m.createErr != nil {
		return m.createErr
	}
	if rel.Kind == models.RelationKindEntityEntity && rel.SourceEntityID == rel.TargetEntityID {
		return apperrors.ErrSelfReference
	}
	for _, existing := range m.relations {
		if existing.Kind != rel.Kind {
			continue
		}
		switch rel.Kind {
		case models.RelationKindFactEntity:
			if existing.FactID != nil && rel.FactID != nil &&
				*existing.FactID == *rel.FactID && existing.TargetEntityID == rel.TargetEntityID {
				return apperrors.ErrConflict
			}
		case models.RelationKindEntityEntity:
			if existing.SourceEntityID == rel.SourceEntityID &&
				existing.TargetEntityID == rel.TargetEntityID &&
				existing.RelationType == rel.RelationType {
				return apperrors.ErrConflict
			}
		}
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	if rel.RelationType == "" {
		rel.RelationType = models.DefaultRelationType
	}
	m.relations = append(m.relations, rel)
	return nil
}

func (m *mockRelationRepo) ListByFact(ctx context.Context, factID uuid.UUID) ([]*models.Relation, error) {
	var out []*models.Relation
	for _, r := range m.relations {
		if r.FactID != nil && *r.FactID == factID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRelationRepo) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Relation, error) {
	var out []*models.Relation
	for _, r := range m.relations {
		if r.SourceEntityID == entityID || r.TargetEntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ repositories.RelationRepository = (*mockRelationRepo)(nil)

type mockRunRepo struct {
	runs map[uuid.UUID]*models.PipelineRun
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[uuid.UUID]*models.PipelineRun)}
}

func (m *mockRunRepo) Create(ctx context.Context, run *models.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *mockRunRepo) Update(ctx context.Context, run *models.PipelineRun) error {
	if _, ok := m.runs[run.ID]; !ok {
		return apperrors.ErrNotFound
	}
	copied := *run
	m.runs[run.ID] = &copied
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
	var out []*models.PipelineRun
	for _, r := range m.runs {
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ repositories.PipelineRunRepository = (*mockRunRepo)(nil)

type mockStepRepo struct {
	steps []*models.PipelineStep
}

func (m *mockStepRepo) Create(ctx context.Context, step *models.PipelineStep) error {
	copied := *step
	m.steps = append(m.steps, &copied)
	return nil
}

func (m *mockStepRepo) Update(ctx context.Context, step *models.PipelineStep) error {
	for i, s := range m.steps {
		if s.ID == step.ID {
			copied := *step
			m.steps[i] = &copied
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockStepRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.PipelineStep, error) {
	var out []*models.PipelineStep
	for _, s := range m.steps {
		if s.RunID == runID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStepRepo) byName(name string) *models.PipelineStep {
	for _, s := range m.steps {
		if s.Name == name {
			return s
		}
	}
	return nil
}

var _ repositories.PipelineStepRepository = (*mockStepRepo)(nil)
