package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies an LLM call failure.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface. This lets the
// retry package check retryability without importing llm.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error from an LLM call into a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatusCode(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatusCode(reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Type: ErrorTypeTimeout, Message: "network timeout", Retryable: true, Cause: err}
		}
		return &Error{Type: ErrorTypeConnection, Message: "network error", Retryable: true, Cause: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return &Error{Type: ErrorTypeConnection, Message: "endpoint unreachable", Retryable: true, Cause: err}
	case strings.Contains(msg, "rate limit"):
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limited", Retryable: true, Cause: err}
	}

	return &Error{Type: ErrorTypeUnknown, Message: "llm call failed", Retryable: false, Cause: err}
}

func classifyStatusCode(status int, cause error) *Error {
	switch {
	case status == 401 || status == 403:
		return &Error{Type: ErrorTypeAuth, Message: "authentication failed", Retryable: false, Cause: cause, StatusCode: status}
	case status == 429:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limited", Retryable: true, Cause: cause, StatusCode: status}
	case status == 408:
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: cause, StatusCode: status}
	case status >= 500:
		return &Error{Type: ErrorTypeServer, Message: "server error", Retryable: true, Cause: cause, StatusCode: status}
	case status >= 400:
		return &Error{Type: ErrorTypeBadRequest, Message: "bad request", Retryable: false, Cause: cause, StatusCode: status}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: "llm call failed", Retryable: false, Cause: cause, StatusCode: status}
	}
}
