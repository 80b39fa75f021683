package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/benvon/moodhome/internal/errors"
	logpkg "github.com/benvon/moodhome/internal/logger"
	"github.com/benvon/moodhome/internal/request"
	"go.uber.org/zap"
)

// ErrorResponse is the error envelope written by middleware. Handlers write
// the same shape without Path.
type ErrorResponse struct {
	Success   bool                `json:"success"`
	Error     string              `json:"error"`
	Message   string              `json:"message"`
	Code      apperrors.ErrorCode `json:"code,omitempty"`
	Timestamp string              `json:"timestamp"`
	Path      string              `json:"path"`
	RequestID string              `json:"request_id,omitempty"`
}

// statusCodes maps middleware rejections onto the API's error codes.
var statusCodes = map[int]apperrors.ErrorCode{
	http.StatusBadRequest:            apperrors.ErrInvalidInput,
	http.StatusUnsupportedMediaType:  apperrors.ErrInvalidInput,
	http.StatusRequestEntityTooLarge: apperrors.ErrInvalidInput,
	http.StatusNotFound:              apperrors.ErrNotFound,
	http.StatusServiceUnavailable:    apperrors.ErrStoreUnavailable,
	http.StatusInternalServerError:   apperrors.ErrInternal,
}

// ErrorHandler turns a handler panic into a 500 envelope. The panic value
// and stack are logged, never returned.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("panic_recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("request_id", request.RequestID(r.Context())),
					zap.Stack("stack"),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	body := ErrorResponse{
		Error:     errorType,
		Message:   message,
		Code:      statusCodes[status],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		RequestID: request.RequestID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Int("status_code", status),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.Error(err),
		)
	}
}
