package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/database"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// PipelineStepRepository provides data access for per-stage step records of
// a pipeline run.
type PipelineStepRepository interface {
	Create(ctx context.Context, step *models.PipelineStep) error
	Update(ctx context.Context, step *models.PipelineStep) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.PipelineStep, error)
}

type pipelineStepRepository struct {
	db *database.DB
}

// NewPipelineStepRepository creates a new PipelineStepRepository.
func NewPipelineStepRepository(db *database.DB) PipelineStepRepository {
	return &pipelineStepRepository{db: db}
}

var _ PipelineStepRepository = (*pipelineStepRepository)(nil)

func (r *pipelineStepRepository) Create(ctx context.Context, step *models.PipelineStep) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	if step.StartedAt.IsZero() {
		step.StartedAt = time.Now()
	}
	if step.Status == "" {
		step.Status = models.StepStatusPending
	}

	query := `
		INSERT INTO pipeline_steps (
			id, run_id, name, status, details, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		step.ID, step.RunID, step.Name, step.Status, step.Details,
		step.ErrorMessage, step.StartedAt, step.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline step: %w", err)
	}
	return nil
}

func (r *pipelineStepRepository) Update(ctx context.Context, step *models.PipelineStep) error {
	query := `
		UPDATE pipeline_steps
		SET status = $2, details = $3, error_message = $4, completed_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		step.ID, step.Status, step.Details, step.ErrorMessage, step.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update pipeline step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *pipelineStepRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.PipelineStep, error) {
	query := `
		SELECT id, run_id, name, status, details, error_message, started_at, completed_at
		FROM pipeline_steps
		WHERE run_id = $1
		ORDER BY started_at, id`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query pipeline steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.PipelineStep
	for rows.Next() {
		var step models.PipelineStep
		err := rows.Scan(
			&step.ID, &step.RunID, &step.Name, &step.Status, &step.Details,
			&step.ErrorMessage, &step.StartedAt, &step.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline step: %w", err)
		}
		steps = append(steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline steps: %w", err)
	}
	return steps, nil
}
