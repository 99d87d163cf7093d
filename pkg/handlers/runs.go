package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
)

// ============================================================================
// Response Types
// ============================================================================

type RunDetailResponse struct {
	Run   *models.PipelineRun    `json:"run"`
	Steps []*models.PipelineStep `json:"steps"`
}

type RunListResponse struct {
	Runs []*models.PipelineRun `json:"runs"`
}

// ============================================================================
// Handler
// ============================================================================

type RunsHandler struct {
	runRepo  repositories.PipelineRunRepository
	stepRepo repositories.PipelineStepRepository
	logger   *zap.Logger
}

func NewRunsHandler(runRepo repositories.PipelineRunRepository, stepRepo repositories.PipelineStepRepository, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{
		runRepo:  runRepo,
		stepRepo: stepRepo,
		logger:   logger.Named("runs-handler"),
	}
}

// GetRun returns a pipeline run with its step audit trail.
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_run_id", "Run ID must be a valid UUID")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), runID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Error("failed to fetch run", zap.String("run_id", runID.String()), zap.Error(err))
		}
		StorageErrorResponse(w, err, "run_not_found", "Pipeline run not found")
		return
	}

	steps, err := h.stepRepo.ListByRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to fetch run steps", zap.String("run_id", runID.String()), zap.Error(err))
		ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to fetch pipeline steps")
		return
	}

	resp := RunDetailResponse{Run: run, Steps: steps}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListRuns returns the most recent pipeline runs.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runRepo.ListRecent(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list pipeline runs")
		return
	}

	if err := WriteJSON(w, http.StatusOK, RunListResponse{Runs: runs}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *RunsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)
}
