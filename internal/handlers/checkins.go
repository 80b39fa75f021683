package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/moodhome/internal/database"
	apperrors "github.com/benvon/moodhome/internal/errors"
	logpkg "github.com/benvon/moodhome/internal/logger"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/queue"
	"github.com/benvon/moodhome/internal/request"
	"github.com/benvon/moodhome/internal/suggestions"
	"github.com/benvon/moodhome/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CheckInHandler handles check-in requests
type CheckInHandler struct {
	checkIns    database.CheckInRepositoryInterface
	suggestions database.SuggestionRepositoryInterface
	jobs        queue.Enqueuer
	logger      *zap.Logger
}

// NewCheckInHandler creates a new check-in handler. jobs may be nil, in
// which case generation is left to the reconciler.
func NewCheckInHandler(checkIns database.CheckInRepositoryInterface, suggestionRepo database.SuggestionRepositoryInterface, jobs queue.Enqueuer, logger *zap.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkIns:    checkIns,
		suggestions: suggestionRepo,
		jobs:        jobs,
		logger:      logger,
	}
}

// RegisterRoutes registers check-in routes
// The router should already have the /checkins prefix
func (h *CheckInHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCheckIns).Methods("GET")
	r.HandleFunc("", h.CreateCheckIn).Methods("POST")
	r.HandleFunc("/{id}", h.GetCheckIn).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateCheckIn).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteCheckIn).Methods("DELETE")
	r.HandleFunc("/{id}/suggestions", h.ListCheckInSuggestions).Methods("GET")
	r.HandleFunc("/{id}/suggestions/regenerate", h.RegenerateSuggestions).Methods("POST")
}

// CreateCheckInRequest represents a create check-in request
type CreateCheckInRequest struct {
	Emotions  []string `json:"emotions" validate:"required,min=1,max=20,dive,emotion"`
	Note      *string  `json:"note,omitempty" validate:"omitempty,max=2000"`
	Timestamp string   `json:"timestamp" validate:"max=64"`
}

// UpdateCheckInRequest represents an update check-in request
type UpdateCheckInRequest struct {
	Emotions  []string `json:"emotions,omitempty" validate:"omitempty,min=1,max=20,dive,emotion"`
	Note      *string  `json:"note,omitempty" validate:"omitempty,max=2000"`
	Timestamp *string  `json:"timestamp,omitempty" validate:"omitempty,max=64"`
}

// RegenerateResponse reports what a regeneration request did
type RegenerateResponse struct {
	Dismissed int       `json:"dismissed"`
	JobID     uuid.UUID `json:"job_id"`
}

// ListCheckIns lists the user's most recent check-ins, newest first
func (h *CheckInHandler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r, "limit", DefaultPageSize, MaxPageSize)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	list, err := h.checkIns.ListRecent(r.Context(), user.ID, limit)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateCheckIn records a check-in and schedules suggestion generation
func (h *CheckInHandler) CreateCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateCheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := &models.CheckIn{
		ID:        uuid.New(),
		UserID:    user.ID,
		Emotions:  validation.SanitizeEmotions(req.Emotions),
		Note:      sanitizeNote(req.Note),
		Timestamp: validation.SanitizeText(req.Timestamp),
	}

	ctx := r.Context()
	if err := h.checkIns.Create(ctx, c); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("checkin_created", logpkg.CheckInFields(user.ID, c.ID, len(c.Emotions), c.Note)...)

	h.enqueue(ctx, queue.JobTypeSuggestionGeneration, c)
	respondJSON(w, http.StatusCreated, c)
}

// GetCheckIn retrieves a check-in by ID
func (h *CheckInHandler) GetCheckIn(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCheckIn(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateCheckIn replaces the emotions, note or display timestamp of a check-in
func (h *CheckInHandler) UpdateCheckIn(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCheckIn(w, r)
	if !ok {
		return
	}

	var req UpdateCheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := applyCheckInUpdate(c, &req); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	ctx := r.Context()
	if err := h.checkIns.Update(ctx, c); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("checkin_updated", logpkg.CheckInFields(c.UserID, c.ID, len(c.Emotions), c.Note)...)

	// A no-op for the worker when suggestions already exist.
	h.enqueue(ctx, queue.JobTypeSuggestionGeneration, c)
	respondJSON(w, http.StatusOK, c)
}

// DeleteCheckIn deletes a check-in and dismisses its active suggestions
func (h *CheckInHandler) DeleteCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "check-in")
	if !ok {
		return
	}

	if err := h.checkIns.Delete(r.Context(), user.ID, id); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("checkin_deleted",
		zap.String("user_id", user.ID.String()),
		zap.String("check_in_id", id.String()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// ListCheckInSuggestions lists every suggestion generated for a check-in, in display order
func (h *CheckInHandler) ListCheckInSuggestions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCheckIn(w, r)
	if !ok {
		return
	}

	list, err := h.suggestions.ListByCheckIn(r.Context(), c.ID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestions.Order(list))
}

// RegenerateSuggestions dismisses the check-in's active suggestions and
// schedules a fresh generation
func (h *CheckInHandler) RegenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCheckIn(w, r)
	if !ok {
		return
	}
	if h.jobs == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Suggestion generation is not available")
		return
	}

	ctx := r.Context()
	dismissed, err := h.suggestions.DismissActiveForCheckIn(ctx, c.UserID, c.ID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	job := queue.NewJob(queue.JobTypeSuggestionRegeneration, c.UserID, c.ID)
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Error("regeneration_enqueue_failed",
			zap.String("user_id", c.UserID.String()),
			zap.String("check_in_id", c.ID.String()),
			zap.Error(err),
		)
		respondAppError(w, r, h.logger, apperrors.NewStoreUnavailable("enqueue regeneration", err))
		return
	}
	h.logger.Info("suggestion_regeneration_requested",
		zap.String("user_id", c.UserID.String()),
		zap.String("check_in_id", c.ID.String()),
		zap.Int("dismissed", dismissed),
		zap.String("job_id", job.ID.String()),
	)
	respondJSON(w, http.StatusAccepted, RegenerateResponse{Dismissed: dismissed, JobID: job.ID})
}

// ownedCheckIn loads the {id} check-in. Check-ins of other users are reported as not found.
func (h *CheckInHandler) ownedCheckIn(w http.ResponseWriter, r *http.Request) (*models.CheckIn, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "check-in")
	if !ok {
		return nil, false
	}

	c, err := h.checkIns.GetByID(r.Context(), id)
	if err == nil && c.UserID != user.ID {
		err = apperrors.NewNotFound("check-in", id.String())
	}
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return nil, false
	}
	return c, true
}

// enqueue schedules generation. Failures are logged only; the reconciler
// picks up check-ins whose generation never completed.
func (h *CheckInHandler) enqueue(ctx context.Context, jobType queue.JobType, c *models.CheckIn) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(jobType, c.UserID, c.ID)
	if rid := request.RequestID(ctx); rid != "" {
		job.Metadata["request_id"] = rid
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Warn("suggestion_job_enqueue_failed",
			zap.String("user_id", c.UserID.String()),
			zap.String("check_in_id", c.ID.String()),
			zap.Error(err),
		)
	}
}

func applyCheckInUpdate(c *models.CheckIn, req *UpdateCheckInRequest) error {
	if req.Emotions != nil {
		if len(req.Emotions) == 0 {
			return apperrors.NewInvalidInput("emotions cannot be empty", nil)
		}
		c.Emotions = validation.SanitizeEmotions(req.Emotions)
	}
	if req.Note != nil {
		c.Note = sanitizeNote(req.Note)
	}
	if req.Timestamp != nil {
		c.Timestamp = validation.SanitizeText(*req.Timestamp)
	}
	return nil
}

// sanitizeNote cleans a note. An empty note clears it.
func sanitizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	s := validation.SanitizeText(*note)
	if s == "" {
		return nil
	}
	return &s
}
