package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/request"
	"github.com/benvon/moodhome/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the default number of records returned by list endpoints
	DefaultPageSize = 50
	// MaxPageSize is the maximum number of records returned by list endpoints
	MaxPageSize = 500
	// maxErrorMessageLength caps client-facing error messages
	maxErrorMessageLength = 200
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage truncates client-facing messages on a rune boundary
func sanitizeErrorMessage(message string) string {
	if utf8.RuneCountInString(message) <= maxErrorMessageLength {
		return message
	}
	return string([]rune(message)[:maxErrorMessageLength]) + "..."
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	writeError(w, status, errorType, message, "", nil)
}

func writeError(w http.ResponseWriter, status int, errorType, message string, code apperrors.ErrorCode, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if code != "" {
		response["code"] = code
	}
	if len(details) > 0 {
		response["details"] = details
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondAppError maps a coded error onto the error envelope. Messages of
// internal and store failures are not exposed.
func respondAppError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternal(err)
	}

	message := appErr.Message
	switch appErr.Code {
	case apperrors.ErrInternal, apperrors.ErrStoreUnavailable:
		if logger != nil {
			logger.Error("request_failed",
				zap.String("code", string(appErr.Code)),
				zap.String("path", r.URL.Path),
				zap.String("request_id", request.RequestID(r.Context())),
				zap.Error(err),
			)
		}
		if appErr.Code == apperrors.ErrInternal {
			message = "An unexpected error occurred"
		} else {
			message = "The store is temporarily unavailable"
		}
	}
	writeError(w, appErr.Status, http.StatusText(appErr.Status), message, appErr.Code, appErr.Details)
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}
	return user, true
}

// pathID parses the {id} route variable or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid %s ID", entity))
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON decodes and validates the request body into dst, writing the
// error response itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Validation failed", apperrors.ErrInvalidInput, validation.FieldErrors(err))
		return false
	}
	return true
}

// parseLimit reads the named query parameter, falling back to def and
// capping at max. Malformed or non-positive values are rejected.
func parseLimit(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.NewInvalidInput(fmt.Sprintf("%s must be a positive integer", name), map[string]any{name: raw})
	}
	if n > max {
		n = max
	}
	return n, nil
}
