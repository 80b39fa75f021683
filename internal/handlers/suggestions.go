package handlers

import (
	"net/http"

	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/suggestions"
	"github.com/benvon/moodhome/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultSummaryTopN is the number of suggestions in a summary when none is configured
const DefaultSummaryTopN = 5

// SuggestionHandler serves ranked suggestions and their lifecycle transitions
type SuggestionHandler struct {
	suggestions database.SuggestionRepositoryInterface
	topN        int
	logger      *zap.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(repo database.SuggestionRepositoryInterface, topN int, logger *zap.Logger) *SuggestionHandler {
	if topN <= 0 {
		topN = DefaultSummaryTopN
	}
	return &SuggestionHandler{suggestions: repo, topN: topN, logger: logger}
}

// RegisterRoutes registers suggestion routes
// The router should already have the /suggestions prefix
func (h *SuggestionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListActive).Methods("GET")
	r.HandleFunc("/summary", h.Summary).Methods("GET")
	r.HandleFunc("/{id}/dismiss", h.Dismiss).Methods("POST")
	r.HandleFunc("/{id}/execute", h.Execute).Methods("POST")
}

// ExecuteSuggestionRequest describes how a suggestion was carried out
type ExecuteSuggestionRequest struct {
	ActionTaken      string                  `json:"action_taken" validate:"required,max=500"`
	WasHelpful       *bool                   `json:"was_helpful,omitempty"`
	Feedback         *string                 `json:"feedback,omitempty" validate:"omitempty,max=2000"`
	CompletionStatus models.CompletionStatus `json:"completion_status,omitempty" validate:"omitempty,completion_status"`
}

// TransitionResponse is returned by dismiss and execute. Applied is false
// when the suggestion had already left the active state.
type TransitionResponse struct {
	Suggestion *models.AutomationSuggestion `json:"suggestion"`
	Applied    bool                         `json:"applied"`
	Execution  *models.AutomationExecution  `json:"execution,omitempty"`
}

// ListActive lists active suggestions ordered by priority, then newest first
func (h *SuggestionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r, "limit", DefaultPageSize, MaxPageSize)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	list, err := h.suggestions.ListActive(r.Context(), user.ID, limit)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Summary returns the top active suggestions and the headline priority
func (h *SuggestionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.suggestions.ListActive(r.Context(), user.ID, 0)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestions.Summarize(list, h.topN))
}

// Dismiss moves an active suggestion to dismissed. Repeating it is harmless.
func (h *SuggestionHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "suggestion")
	if !ok {
		return
	}

	s, applied, err := h.suggestions.Dismiss(r.Context(), user.ID, id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	if applied {
		h.logger.Info("suggestion_dismissed",
			zap.String("user_id", user.ID.String()),
			zap.String("suggestion_id", id.String()),
		)
	}
	respondJSON(w, http.StatusOK, TransitionResponse{Suggestion: s, Applied: applied})
}

// Execute moves an active suggestion to executed and records the execution.
// Repeating it returns the suggestion without writing a second record.
func (h *SuggestionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "suggestion")
	if !ok {
		return
	}

	var req ExecuteSuggestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exec := &models.AutomationExecution{
		ActionTaken:      validation.SanitizeText(req.ActionTaken),
		WasHelpful:       req.WasHelpful,
		Feedback:         sanitizeNote(req.Feedback),
		CompletionStatus: req.CompletionStatus,
	}

	s, applied, err := h.suggestions.Execute(r.Context(), user.ID, id, exec)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	resp := TransitionResponse{Suggestion: s, Applied: applied}
	if applied {
		resp.Execution = exec
		h.logger.Info("suggestion_executed",
			zap.String("user_id", user.ID.String()),
			zap.String("suggestion_id", id.String()),
			zap.String("completion_status", string(exec.CompletionStatus)),
		)
	}
	respondJSON(w, http.StatusOK, resp)
}
