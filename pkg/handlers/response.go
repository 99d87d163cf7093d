package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
)

// apiError is the error body every endpoint returns.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(apiError{Error: errorCode, Message: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// StorageErrorResponse maps a repository error onto an HTTP status: a
// not-found becomes 404 with the given code and message, anything else a
// generic 500.
func StorageErrorResponse(w http.ResponseWriter, err error, notFoundCode, notFoundMessage string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return ErrorResponse(w, http.StatusNotFound, notFoundCode, notFoundMessage)
	}
	return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal storage error")
}
