package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
)

// RunRecorder persists the audit trail of a pipeline run. Every method is
// best-effort: a failure to record history is logged and swallowed, because
// the audit trail must never take the pipeline down with it.
type RunRecorder struct {
	runRepo  repositories.PipelineRunRepository
	stepRepo repositories.PipelineStepRepository
	logger   *zap.Logger
}

// NewRunRecorder creates a new RunRecorder.
func NewRunRecorder(
	runRepo repositories.PipelineRunRepository,
	stepRepo repositories.PipelineStepRepository,
	logger *zap.Logger,
) *RunRecorder {
	return &RunRecorder{
		runRepo:  runRepo,
		stepRepo: stepRepo,
		logger:   logger.Named("run-recorder"),
	}
}

// StartRun creates the run record. The returned value is usable even when
// persistence failed; downstream writes will then fail and be swallowed too.
func (r *RunRecorder) StartRun(ctx context.Context, observationRef string) *models.PipelineRun {
	run := &models.PipelineRun{
		ID:             uuid.New(),
		ObservationRef: observationRef,
		Status:         models.RunStatusProcessing,
		StartedAt:      time.Now(),
	}
	if err := r.runRepo.Create(ctx, run); err != nil {
		r.logger.Warn("Failed to record run start",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
	return run
}

// StartStep records the beginning of a named pipeline stage.
func (r *RunRecorder) StartStep(ctx context.Context, runID uuid.UUID, name string) *models.PipelineStep {
	step := &models.PipelineStep{
		ID:        uuid.New(),
		RunID:     runID,
		Name:      name,
		Status:    models.StepStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.stepRepo.Create(ctx, step); err != nil {
		r.logger.Warn("Failed to record step start",
			zap.String("step", name),
			zap.Error(err))
	}
	return step
}

// CompleteStep marks a step completed with optional detail text.
func (r *RunRecorder) CompleteStep(ctx context.Context, step *models.PipelineStep, details string) {
	now := time.Now()
	step.Status = models.StepStatusCompleted
	step.Details = details
	step.CompletedAt = &now
	if err := r.stepRepo.Update(ctx, step); err != nil {
		r.logger.Warn("Failed to record step completion",
			zap.String("step", step.Name),
			zap.Error(err))
	}
}

// FailStep marks a step failed with the error's message.
func (r *RunRecorder) FailStep(ctx context.Context, step *models.PipelineStep, stepErr error) {
	now := time.Now()
	step.Status = models.StepStatusError
	step.ErrorMessage = stepErr.Error()
	step.CompletedAt = &now
	if err := r.stepRepo.Update(ctx, step); err != nil {
		r.logger.Warn("Failed to record step failure",
			zap.String("step", step.Name),
			zap.Error(err))
	}
}

// FinishRun writes the run's terminal state.
func (r *RunRecorder) FinishRun(ctx context.Context, run *models.PipelineRun) {
	now := time.Now()
	run.CompletedAt = &now
	if err := r.runRepo.Update(ctx, run); err != nil {
		r.logger.Warn("Failed to record run completion",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}
