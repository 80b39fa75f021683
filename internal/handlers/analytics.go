package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/telemetry"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxMoodWindow caps the window a client may request
const MaxMoodWindow = 500

// MoodResponse is a mood summary plus how many records were skipped
type MoodResponse struct {
	*analytics.Summary
	Rejected int `json:"rejected"`
}

// AnalyticsHandler serves mood analytics
type AnalyticsHandler struct {
	checkIns database.CheckInRepositoryInterface
	window   int
	logger   *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler. window is the default
// number of recent check-ins analysed.
func NewAnalyticsHandler(checkIns database.CheckInRepositoryInterface, window int, logger *zap.Logger) *AnalyticsHandler {
	if window <= 0 {
		window = analytics.DefaultWindow
	}
	return &AnalyticsHandler{checkIns: checkIns, window: window, logger: logger}
}

// RegisterRoutes registers analytics routes
// The router should already have the /analytics prefix
func (h *AnalyticsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/mood", h.Mood).Methods("GET")
}

// Mood summarises the user's recent check-ins
func (h *AnalyticsHandler) Mood(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	window, err := parseLimit(r, "window", h.window, MaxMoodWindow)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	resp, err := h.summarize(r.Context(), user.ID, window)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AnalyticsHandler) summarize(ctx context.Context, userID uuid.UUID, window int) (*MoodResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "analytics.mood",
		attribute.String("user_id", userID.String()),
		attribute.Int("window", window),
	)
	checkIns, err := h.checkIns.ListRecent(ctx, userID, window)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}
	summary := analytics.NewEngine(window).Analyze(checkIns)
	span.SetAttributes(attribute.Int("occurrences", summary.Occurrences))
	telemetry.EndSpan(span, nil)

	if len(summary.Rejected) > 0 {
		h.logger.Warn("mood_records_rejected",
			zap.String("user_id", userID.String()),
			zap.Int("rejected", len(summary.Rejected)),
			zap.Error(summary.Err()),
		)
	}
	return &MoodResponse{Summary: summary, Rejected: len(summary.Rejected)}, nil
}
