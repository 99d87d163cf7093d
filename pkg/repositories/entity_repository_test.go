//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/testhelpers"
)

func TestEntityRepository_FindByNameAndType(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewEntityRepository(engineDB.DB)
	ctx := context.Background()

	entity := &models.Entity{
		Name:        "Rust",
		Type:        models.EntityTypeTopic,
		Description: "Systems programming language",
		Embedding:   []float32{0.9, 0.1},
	}
	require.NoError(t, repo.Create(ctx, entity))

	t.Run("case-insensitive match", func(t *testing.T) {
		got, err := repo.FindByNameAndType(ctx, "rust", models.EntityTypeTopic)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entity.ID, got.ID)
	})

	t.Run("type mismatch returns nil", func(t *testing.T) {
		got, err := repo.FindByNameAndType(ctx, "Rust", models.EntityTypePerson)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown name returns nil", func(t *testing.T) {
		got, err := repo.FindByNameAndType(ctx, "Zig", models.EntityTypeTopic)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestEntityRepository_ListEmbedded(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewEntityRepository(engineDB.DB)
	ctx := context.Background()

	embedded := &models.Entity{
		Name:      "Maple Cafe",
		Type:      models.EntityTypePlace,
		Embedding: []float32{0.3, 0.7},
	}
	bare := &models.Entity{
		Name: "Untitled Project",
		Type: models.EntityTypeProject,
	}
	require.NoError(t, repo.Create(ctx, embedded))
	require.NoError(t, repo.Create(ctx, bare))

	entities, err := repo.ListEmbedded(ctx)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(entities))
	for _, e := range entities {
		require.NotEmpty(t, e.Embedding)
		ids[e.ID] = true
	}
	assert.True(t, ids[embedded.ID])
	assert.False(t, ids[bare.ID])
}
