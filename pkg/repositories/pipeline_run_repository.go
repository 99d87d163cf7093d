package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/database"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// PipelineRunRepository provides data access for pipeline run records.
type PipelineRunRepository interface {
	Create(ctx context.Context, run *models.PipelineRun) error
	Update(ctx context.Context, run *models.PipelineRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.PipelineRun, error)
}

type pipelineRunRepository struct {
	db *database.DB
}

// NewPipelineRunRepository creates a new PipelineRunRepository.
func NewPipelineRunRepository(db *database.DB) PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

var _ PipelineRunRepository = (*pipelineRunRepository)(nil)

const runColumns = `id, observation_ref, status, action_kind, facts_created,
	entities_created, relations_created, error_message, started_at, completed_at`

func (r *pipelineRunRepository) Create(ctx context.Context, run *models.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = models.RunStatusProcessing
	}

	query := `
		INSERT INTO pipeline_runs (
			id, observation_ref, status, action_kind, facts_created,
			entities_created, relations_created, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.ObservationRef, run.Status, run.ActionKind, run.FactsCreated,
		run.EntitiesCreated, run.RelationsCreated, run.ErrorMessage,
		run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

func (r *pipelineRunRepository) Update(ctx context.Context, run *models.PipelineRun) error {
	query := `
		UPDATE pipeline_runs
		SET status = $2, action_kind = $3, facts_created = $4,
			entities_created = $5, relations_created = $6,
			error_message = $7, completed_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		run.ID, run.Status, run.ActionKind, run.FactsCreated,
		run.EntitiesCreated, run.RelationsCreated, run.ErrorMessage, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update pipeline run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *pipelineRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("query pipeline run: %w", err)
	}
	return run, nil
}

func (r *pipelineRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.PipelineRun, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := row.Scan(
		&run.ID, &run.ObservationRef, &run.Status, &run.ActionKind,
		&run.FactsCreated, &run.EntitiesCreated, &run.RelationsCreated,
		&run.ErrorMessage, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
