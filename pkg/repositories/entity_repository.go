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

// EntityRepository provides data access for knowledge-graph entities.
type EntityRepository interface {
	Create(ctx context.Context, entity *models.Entity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error)
	// FindByNameAndType returns the oldest entity matching the given name
	// (case-insensitive) and type, or nil if none exists.
	FindByNameAndType(ctx context.Context, name string, entityType models.EntityType) (*models.Entity, error)
	// ListEmbedded returns entities that carry a non-empty embedding.
	ListEmbedded(ctx context.Context) ([]*models.Entity, error)
}

type entityRepository struct {
	db *database.DB
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(db *database.DB) EntityRepository {
	return &entityRepository{db: db}
}

var _ EntityRepository = (*entityRepository)(nil)

const entityColumns = `id, name, type, description, embedding, created_at`

func (r *entityRepository) Create(ctx context.Context, entity *models.Entity) error {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	if entity.Embedding == nil {
		entity.Embedding = []float32{}
	}

	query := `
		INSERT INTO entities (id, name, type, description, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		entity.ID, entity.Name, entity.Type, entity.Description,
		entity.Embedding, entity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (r *entityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`

	entity, err := scanEntity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("query entity: %w", err)
	}
	return entity, nil
}

func (r *entityRepository) FindByNameAndType(ctx context.Context, name string, entityType models.EntityType) (*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE lower(name) = lower($1) AND type = $2
		ORDER BY created_at
		LIMIT 1`

	entity, err := scanEntity(r.db.QueryRow(ctx, query, name, entityType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query entity by name: %w", err)
	}
	return entity, nil
}

func (r *entityRepository) ListEmbedded(ctx context.Context) ([]*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE cardinality(embedding) > 0
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedded entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var entity models.Entity
	err := row.Scan(
		&entity.ID, &entity.Name, &entity.Type, &entity.Description,
		&entity.Embedding, &entity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
