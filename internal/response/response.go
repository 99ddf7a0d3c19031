package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/patwikx/twc-platform/internal/domain"
)

// ErrorResponse is the JSON error envelope every endpoint shares.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes v with the given status. Encoding failures are logged,
// not surfaced; the status line has already gone out.
func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	JSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code string, details map[string]any) {
	JSON(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// Error maps any error onto the envelope. Domain errors keep their
// code, status and details; everything else becomes a 500 with a
// generic message so internals never leak.
func Error(w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		JSON(w, de.HTTPStatus, ErrorResponse{Error: de.Message, Code: de.Code, Details: de.Details})
		return
	}
	WriteError(w, http.StatusInternalServerError, "something went wrong, please try again", domain.CodeInternal)
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, domain.CodeValidationError)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, domain.CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, domain.CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, domain.CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, domain.CodeInternal)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, domain.CodeRateLimited)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, domain.CodeRoomUnavailable)
}
