package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"invalid input", NewInvalidInput("emotion label is blank", nil), ErrInvalidInput, http.StatusBadRequest},
		{"not found", NewNotFound("check-in", "abc"), ErrNotFound, http.StatusNotFound},
		{"conflict", NewConflict("duplicate", nil), ErrConflict, http.StatusConflict},
		{"store unavailable", NewStoreUnavailable("insert check-in", sql.ErrConnDone), ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"generator failure", NewGeneratorFailure("unparseable response", nil), ErrGeneratorFailure, http.StatusBadGateway},
		{"internal", NewInternal(errors.New("boom")), ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, Is(tt.err, tt.code))
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestIs_Wrapped(t *testing.T) {
	t.Parallel()

	base := NewNotFound("suggestion", "123")
	wrapped := fmt.Errorf("dismiss suggestion: %w", base)

	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(errors.New("plain"), ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "123", appErr.Details["id"])
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	err := NewStoreUnavailable("list check-ins", sql.ErrConnDone)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
	assert.Contains(t, err.Error(), "list check-ins")
}

func TestStatusOf_PlainError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
}
