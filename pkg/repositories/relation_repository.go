package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/database"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

const pgUniqueViolation = "23505"

// RelationRepository provides data access for graph edges.
type RelationRepository interface {
	// Create inserts a relation. Returns apperrors.ErrSelfReference for an
	// entity edge whose endpoints are the same, and apperrors.ErrConflict
	// when an identical edge already exists.
	Create(ctx context.Context, rel *models.Relation) error
	// ListByFact returns the fact-to-entity links of a fact.
	ListByFact(ctx context.Context, factID uuid.UUID) ([]*models.Relation, error)
	// ListByEntity returns every edge touching an entity, either kind.
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Relation, error)
}

type relationRepository struct {
	db *database.DB
}

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository(db *database.DB) RelationRepository {
	return &relationRepository{db: db}
}

var _ RelationRepository = (*relationRepository)(nil)

const relationColumns = `id, kind, source_entity_id, target_entity_id,
	relation_type, description, fact_id, created_at`

func (r *relationRepository) Create(ctx context.Context, rel *models.Relation) error {
	if rel.Kind == models.RelationKindEntityEntity && rel.SourceEntityID == rel.TargetEntityID {
		return apperrors.ErrSelfReference
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	if rel.RelationType == "" {
		rel.RelationType = models.DefaultRelationType
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO relations (
			id, kind, source_entity_id, target_entity_id,
			relation_type, description, fact_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		rel.ID, rel.Kind, nullableUUID(rel.SourceEntityID), nullableUUID(rel.TargetEntityID),
		rel.RelationType, rel.Description, rel.FactID, rel.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("insert relation: %w", err)
	}
	return nil
}

func (r *relationRepository) ListByFact(ctx context.Context, factID uuid.UUID) ([]*models.Relation, error) {
	query := `
		SELECT ` + relationColumns + `
		FROM relations
		WHERE fact_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, factID)
	if err != nil {
		return nil, fmt.Errorf("query relations by fact: %w", err)
	}
	defer rows.Close()

	return collectRelations(rows)
}

func (r *relationRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Relation, error) {
	query := `
		SELECT ` + relationColumns + `
		FROM relations
		WHERE source_entity_id = $1 OR target_entity_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query relations by entity: %w", err)
	}
	defer rows.Close()

	return collectRelations(rows)
}

func collectRelations(rows pgx.Rows) ([]*models.Relation, error) {
	var relations []*models.Relation
	for rows.Next() {
		var rel models.Relation
		var sourceID, targetID *uuid.UUID
		err := rows.Scan(
			&rel.ID, &rel.Kind, &sourceID, &targetID,
			&rel.RelationType, &rel.Description, &rel.FactID, &rel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		if sourceID != nil {
			rel.SourceEntityID = *sourceID
		}
		if targetID != nil {
			rel.TargetEntityID = *targetID
		}
		relations = append(relations, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}

// nullableUUID maps the zero UUID to SQL NULL so the shape constraints on
// the relations table hold.
func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
