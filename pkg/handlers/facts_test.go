package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

func TestFactsHandler_SearchFacts(t *testing.T) {
	fact := &models.Fact{ID: uuid.New(), Content: "User prefers morning meetings"}
	contextSvc := &mockContextService{
		searchFunc: func(ctx context.Context, query string, topK int, minScore float64) ([]services.ScoredFact, error) {
			return []services.ScoredFact{{Fact: fact, Score: 0.91}}, nil
		},
	}
	handler := NewFactsHandler(newMockFactRepo(), contextSvc, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/facts/search?q=meetings&limit=10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "meetings", contextSvc.lastQuery)
	assert.Equal(t, 10, contextSvc.lastTopK)

	var resp FactSearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, fact.ID, resp.Results[0].Fact.ID)
	assert.InDelta(t, 0.91, resp.Results[0].Score, 0.001)
}

func TestFactsHandler_SearchFacts_MissingQuery(t *testing.T) {
	contextSvc := &mockContextService{}
	handler := NewFactsHandler(newMockFactRepo(), contextSvc, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/facts/search", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, contextSvc.searchCalls)
}

func TestFactsHandler_SearchFacts_InvalidLimit(t *testing.T) {
	handler := NewFactsHandler(newMockFactRepo(), &mockContextService{}, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/facts/search?q=x&limit=zero", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFactsHandler_SearchFacts_EmptyResults(t *testing.T) {
	handler := NewFactsHandler(newMockFactRepo(), &mockContextService{}, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/facts/search?q=nothing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FactSearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestFactsHandler_DeleteFact(t *testing.T) {
	factRepo := newMockFactRepo()
	fact := &models.Fact{ID: uuid.New(), Content: "stale fact"}
	require.NoError(t, factRepo.Create(context.Background(), fact))

	handler := NewFactsHandler(factRepo, &mockContextService{}, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodDelete, "/api/facts/"+fact.ID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Second delete of the same fact reports not found.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/facts/"+fact.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFactsHandler_DeleteFact_InvalidID(t *testing.T) {
	handler := NewFactsHandler(newMockFactRepo(), &mockContextService{}, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodDelete, "/api/facts/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFactsHandler_ListFacts(t *testing.T) {
	factRepo := newMockFactRepo()
	factRepo.recent = []*models.Fact{
		{ID: uuid.New(), Content: "newest"},
		{ID: uuid.New(), Content: "older"},
	}
	handler := NewFactsHandler(factRepo, &mockContextService{}, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/facts", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FactListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Facts, 2)
}
