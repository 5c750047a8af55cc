package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors shared across layers.
var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when a caller mutates a resource they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrCacheDegraded is returned by the cache store once its reconnect
	// budget is exhausted; callers treat it like any other cache failure
	// (log and continue) but no further remote attempts are made.
	ErrCacheDegraded = errors.New("cache store is in degraded state")
)

// ErrorCode represents a specific error condition reported to clients.
type ErrorCode string

const (
	ErrCodeBadRequest ErrorCode = "BadRequest"
	ErrCodeNotFound   ErrorCode = "NotFound"
	ErrCodeForbidden  ErrorCode = "Forbidden"
	ErrCodeInternal   ErrorCode = "InternalServerError"
)

// ErrorResponse is the standard error format returned to clients via HTTP
// JSON or inside a WebSocket "error" frame.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not handled here.
}
