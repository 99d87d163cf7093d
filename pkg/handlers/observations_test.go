package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

func TestObservationsHandler_ProcessObservation(t *testing.T) {
	runID := uuid.New()
	orch := &mockOrchestrator{
		processFunc: func(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error) {
			return &services.PipelineResult{
				RunID:        runID,
				Status:       models.RunStatusCompleted,
				ActionKind:   models.ActionSaveMemory,
				FactsCreated: 2,
			}, nil
		},
	}
	handler := NewObservationsHandler(orch, zap.NewNop())

	body := `{"text": "Sarah mentioned the quarterly review moved to Thursday", "source_ref": "screenshot-42"}`
	req := httptest.NewRequest(http.MethodPost, "/api/observations", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ProcessObservation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, orch.processCalls)
	assert.Equal(t, "screenshot-42", orch.lastObs.SourceRef)

	var result services.PipelineResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.FactsCreated)
}

func TestObservationsHandler_ProcessObservation_InvalidJSON(t *testing.T) {
	orch := &mockOrchestrator{}
	handler := NewObservationsHandler(orch, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/observations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.ProcessObservation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, orch.processCalls)
}

func TestObservationsHandler_ProcessObservation_MissingText(t *testing.T) {
	orch := &mockOrchestrator{}
	handler := NewObservationsHandler(orch, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/observations", strings.NewReader(`{"source_ref": "x"}`))
	rec := httptest.NewRecorder()

	handler.ProcessObservation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, orch.processCalls)
	assert.Contains(t, rec.Body.String(), "missing_text")
}

func TestObservationsHandler_ProcessObservation_PipelineFailure(t *testing.T) {
	runID := uuid.New()
	orch := &mockOrchestrator{
		processFunc: func(ctx context.Context, obs services.Observation, observer services.ProgressObserver, onToken llm.TokenCallback) (*services.PipelineResult, error) {
			return &services.PipelineResult{
				RunID:        runID,
				Status:       models.RunStatusError,
				ErrorMessage: "classify observation: model unavailable",
			}, errors.New("classify observation: model unavailable")
		},
	}
	handler := NewObservationsHandler(orch, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/observations", strings.NewReader(`{"text": "hello"}`))
	rec := httptest.NewRecorder()

	handler.ProcessObservation(rec, req)

	// A failed run still returns its partial result so callers can inspect it.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var result services.PipelineResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, models.RunStatusError, result.Status)
}
