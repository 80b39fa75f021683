package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListExecutions(t *testing.T) {
	t.Parallel()

	user := testUser()
	var gotUser uuid.UUID
	var gotLimit int
	repo := &mockExecutionRepo{listFn: func(_ context.Context, userID uuid.UUID, limit int) ([]*models.AutomationExecution, error) {
		gotUser, gotLimit = userID, limit
		return []*models.AutomationExecution{{ID: uuid.New(), UserID: userID, ActionTaken: "called"}}, nil
	}}
	h := NewExecutionHandler(repo, zap.NewNop())

	w := serve(t, h.RegisterRoutes, "/executions", user, jsonRequest(http.MethodGet, "/executions?limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, user.ID, gotUser)
	assert.Equal(t, 3, gotLimit)

	var got []models.AutomationExecution
	decodeEnvelope(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "called", got[0].ActionTaken)
}

func TestListExecutions_Errors(t *testing.T) {
	t.Parallel()

	h := NewExecutionHandler(&mockExecutionRepo{}, zap.NewNop())
	w := serve(t, h.RegisterRoutes, "/executions", testUser(), jsonRequest(http.MethodGet, "/executions?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := &mockExecutionRepo{listFn: func(context.Context, uuid.UUID, int) ([]*models.AutomationExecution, error) {
		return nil, apperrors.NewStoreUnavailable("list executions", errors.New("connection reset"))
	}}
	h = NewExecutionHandler(failing, zap.NewNop())
	w = serve(t, h.RegisterRoutes, "/executions", testUser(), jsonRequest(http.MethodGet, "/executions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
