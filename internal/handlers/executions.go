package handlers

import (
	"net/http"

	"github.com/benvon/moodhome/internal/database"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ExecutionHandler serves the execution audit log
type ExecutionHandler struct {
	executions database.ExecutionRepositoryInterface
	logger     *zap.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(executions database.ExecutionRepositoryInterface, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{executions: executions, logger: logger}
}

// RegisterRoutes registers execution routes
func (h *ExecutionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListExecutions).Methods("GET")
}

// ListExecutions lists the user's executions, newest first
func (h *ExecutionHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r, "limit", DefaultPageSize, MaxPageSize)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	list, err := h.executions.ListByUser(r.Context(), user.ID, limit)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}
