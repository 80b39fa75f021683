// Package errors defines the coded error taxonomy shared by the store, the
// generation pipeline and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"     // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrGeneratorFailure ErrorCode = "GENERATOR_FAILURE" // 502
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // 503
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// AppError is a structured error with a code, an HTTP status and optional details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewInvalidInput creates a 400 error for a malformed record or request field.
func NewInvalidInput(msg string, details map[string]any) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Status:  http.StatusBadRequest,
		Message: msg,
		Details: details,
	}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(entity, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a 409 error.
func NewConflict(msg string, cause error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Status:  http.StatusConflict,
		Message: msg,
		Cause:   cause,
	}
}

// NewStoreUnavailable wraps a failed store call. Callers must not assume any
// part of the write was applied.
func NewStoreUnavailable(op string, cause error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: fmt.Sprintf("failed to %s", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// NewGeneratorFailure wraps a failed or unparseable suggestion generator call.
func NewGeneratorFailure(msg string, cause error) *AppError {
	return &AppError{
		Code:    ErrGeneratorFailure,
		Status:  http.StatusBadGateway,
		Message: msg,
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal error",
		Cause:   err,
	}
}

// Is reports whether err, or any error it wraps, is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, or 500 if err is not an AppError.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
