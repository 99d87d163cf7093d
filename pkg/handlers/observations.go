package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

type ProcessObservationRequest struct {
	Text      string `json:"text"`
	SourceRef string `json:"source_ref,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

type ObservationsHandler struct {
	orchestrator services.PipelineOrchestrator
	logger       *zap.Logger
}

func NewObservationsHandler(orchestrator services.PipelineOrchestrator, logger *zap.Logger) *ObservationsHandler {
	return &ObservationsHandler{
		orchestrator: orchestrator,
		logger:       logger.Named("observations-handler"),
	}
}

// ProcessObservation runs an observation through the extraction pipeline
// synchronously and returns the pipeline result.
func (h *ObservationsHandler) ProcessObservation(w http.ResponseWriter, r *http.Request) {
	var req ProcessObservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	if req.Text == "" {
		ErrorResponse(w, http.StatusBadRequest, "missing_text", "Observation text is required")
		return
	}

	obs := services.Observation{
		Text:      req.Text,
		SourceRef: req.SourceRef,
		ImagePath: req.ImagePath,
	}

	result, err := h.orchestrator.Process(r.Context(), obs, nil, nil)
	if err != nil {
		h.logger.Error("pipeline processing failed", zap.Error(err))
		if result != nil {
			// Partial state is still useful to the caller.
			WriteJSON(w, http.StatusInternalServerError, result)
			return
		}
		ErrorResponse(w, http.StatusInternalServerError, "pipeline_failed", "Failed to process observation")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *ObservationsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/observations", h.ProcessObservation)
}
