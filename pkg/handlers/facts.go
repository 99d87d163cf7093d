package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// ============================================================================
// Response Types
// ============================================================================

type ScoredFactResponse struct {
	Fact  *models.Fact `json:"fact"`
	Score float64      `json:"score"`
}

type FactSearchResponse struct {
	Query   string               `json:"query"`
	Results []ScoredFactResponse `json:"results"`
}

type FactListResponse struct {
	Facts []*models.Fact `json:"facts"`
}

// ============================================================================
// Handler
// ============================================================================

type FactsHandler struct {
	factRepo   repositories.FactRepository
	contextSvc services.ResponseContextService
	logger     *zap.Logger
}

func NewFactsHandler(factRepo repositories.FactRepository, contextSvc services.ResponseContextService, logger *zap.Logger) *FactsHandler {
	return &FactsHandler{
		factRepo:   factRepo,
		contextSvc: contextSvc,
		logger:     logger.Named("facts-handler"),
	}
}

// SearchFacts ranks stored facts against a free-text query by embedding
// similarity.
func (h *FactsHandler) SearchFacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		ErrorResponse(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
			return
		}
		topK = parsed
	}

	scored, err := h.contextSvc.Search(r.Context(), query, topK, 0)
	if err != nil {
		h.logger.Error("fact search failed", zap.Error(err))
		ErrorResponse(w, http.StatusInternalServerError, "search_failed", "Failed to search facts")
		return
	}

	results := make([]ScoredFactResponse, 0, len(scored))
	for _, s := range scored {
		results = append(results, ScoredFactResponse{Fact: s.Fact, Score: s.Score})
	}

	resp := FactSearchResponse{Query: query, Results: results}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListFacts returns the most recently stored facts.
func (h *FactsHandler) ListFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := h.factRepo.ListRecent(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list facts", zap.Error(err))
		ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list facts")
		return
	}

	if err := WriteJSON(w, http.StatusOK, FactListResponse{Facts: facts}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// DeleteFact removes a stored fact by ID.
func (h *FactsHandler) DeleteFact(w http.ResponseWriter, r *http.Request) {
	factID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_fact_id", "Fact ID must be a valid UUID")
		return
	}

	if err := h.factRepo.Delete(r.Context(), factID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Error("failed to delete fact", zap.String("fact_id", factID.String()), zap.Error(err))
		}
		StorageErrorResponse(w, err, "fact_not_found", "Fact not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FactsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/facts", h.ListFacts)
	mux.HandleFunc("GET /api/facts/search", h.SearchFacts)
	mux.HandleFunc("DELETE /api/facts/{id}", h.DeleteFact)
}
