package domain

import (
	"fmt"
	"net/http"
)

const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeRoomUnavailable     = "ROOM_UNAVAILABLE"
	CodeAvailabilityChanged = "AVAILABILITY_CHANGED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is a failure the API can explain to a caller: a stable machine
// code, a human message, and the status it should travel under.
// Anything that is not an *Error is reported as CodeInternal without
// leaking its message.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{
		Code:       CodeValidationError,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewRoomUnavailable(message string) *Error {
	return &Error{
		Code:       CodeRoomUnavailable,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewAvailabilityChanged covers the race window between the pre-check
// and the transactional re-check: rooms were free moments ago and are
// not anymore.
func NewAvailabilityChanged(rooms []string) *Error {
	e := &Error{
		Code:       CodeAvailabilityChanged,
		Message:    "room availability changed while processing your booking, please try again",
		HTTPStatus: http.StatusConflict,
	}
	if len(rooms) > 0 {
		e.Details = map[string]any{"rooms": rooms}
	}
	return e
}

func NewNotFound(resource string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewUnauthorized(message string) *Error {
	return &Error{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewForbidden(message string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewInternal(err error) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    "something went wrong, please try again",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
