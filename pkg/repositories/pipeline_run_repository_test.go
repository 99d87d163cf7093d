//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/testhelpers"
)

func TestPipelineRunRepository_Lifecycle(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	runs := NewPipelineRunRepository(engineDB.DB)
	steps := NewPipelineStepRepository(engineDB.DB)
	ctx := context.Background()

	run := &models.PipelineRun{ObservationRef: "obs-lifecycle"}
	require.NoError(t, runs.Create(ctx, run))
	assert.Equal(t, models.RunStatusProcessing, run.Status)

	step := &models.PipelineStep{RunID: run.ID, Name: "analyzing", Status: models.StepStatusRunning}
	require.NoError(t, steps.Create(ctx, step))

	now := time.Now()
	step.Status = models.StepStatusCompleted
	step.Details = "verdict SAVE_MEMORY"
	step.CompletedAt = &now
	require.NoError(t, steps.Update(ctx, step))

	run.Status = models.RunStatusCompleted
	run.ActionKind = models.ActionSaveMemory
	run.FactsCreated = 2
	run.EntitiesCreated = 1
	run.RelationsCreated = 1
	run.CompletedAt = &now
	require.NoError(t, runs.Update(ctx, run))

	got, err := runs.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 2, got.FactsCreated)
	require.NotNil(t, got.CompletedAt)

	recorded, err := steps.ListByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "analyzing", recorded[0].Name)
	assert.Equal(t, models.StepStatusCompleted, recorded[0].Status)
}

func TestPipelineRunRepository_UpdateMissing(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	runs := NewPipelineRunRepository(engineDB.DB)

	run := &models.PipelineRun{ID: uuid.New(), Status: models.RunStatusError}
	assert.ErrorIs(t, runs.Update(context.Background(), run), apperrors.ErrNotFound)
}
