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

// FactRepository provides data access for stored facts. Facts are immutable
// once written; the only mutation is deletion.
type FactRepository interface {
	Create(ctx context.Context, fact *models.Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Fact, error)
	// ListEmbedded returns facts that carry a non-empty embedding, newest
	// first, up to limit (0 means no limit).
	ListEmbedded(ctx context.Context, limit int) ([]*models.Fact, error)
	// ListRecent returns the most recently created facts regardless of
	// embedding state.
	ListRecent(ctx context.Context, limit int) ([]*models.Fact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type factRepository struct {
	db *database.DB
}

// NewFactRepository creates a new FactRepository.
func NewFactRepository(db *database.DB) FactRepository {
	return &factRepository{db: db}
}

var _ FactRepository = (*factRepository)(nil)

const factColumns = `id, content, kind, importance, context, structured_data,
	embedding, source_ref, source_image_path, created_at`

func (r *factRepository) Create(ctx context.Context, fact *models.Fact) error {
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	if fact.Embedding == nil {
		fact.Embedding = []float32{}
	}

	query := `
		INSERT INTO facts (
			id, content, kind, importance, context, structured_data,
			embedding, source_ref, source_image_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		fact.ID, fact.Content, fact.Kind, fact.Importance, fact.Context,
		fact.StructuredData, fact.Embedding, fact.SourceRef,
		fact.SourceImagePath, fact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	return nil
}

func (r *factRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts WHERE id = $1`

	fact, err := scanFact(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("query fact: %w", err)
	}
	return fact, nil
}

func (r *factRepository) ListEmbedded(ctx context.Context, limit int) ([]*models.Fact, error) {
	query := `
		SELECT ` + factColumns + `
		FROM facts
		WHERE cardinality(embedding) > 0
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embedded facts: %w", err)
	}
	defer rows.Close()

	return collectFacts(rows)
}

func (r *factRepository) ListRecent(ctx context.Context, limit int) ([]*models.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent facts: %w", err)
	}
	defer rows.Close()

	return collectFacts(rows)
}

func (r *factRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM facts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanFact(row pgx.Row) (*models.Fact, error) {
	var fact models.Fact
	err := row.Scan(
		&fact.ID, &fact.Content, &fact.Kind, &fact.Importance, &fact.Context,
		&fact.StructuredData, &fact.Embedding, &fact.SourceRef,
		&fact.SourceImagePath, &fact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fact, nil
}

func collectFacts(rows pgx.Rows) ([]*models.Fact, error) {
	var facts []*models.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}
