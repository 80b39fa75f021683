package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/feed"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/suggestions"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultHeartbeatInterval keeps idle event streams open through proxies
const DefaultHeartbeatInterval = 25 * time.Second

type streamSource struct {
	collections []models.Collection
	load        func(ctx context.Context, userID uuid.UUID) (any, error)
}

// StreamHandler serves Server-Sent Event subscriptions. Each stream sends
// the current value of a query and a fresh value after every change.
type StreamHandler struct {
	notifier  feed.Notifier
	sources   map[string]streamSource
	heartbeat time.Duration
	logger    *zap.Logger
}

// StreamRepositories are the stores the streams read from
type StreamRepositories struct {
	CheckIns    database.CheckInRepositoryInterface
	Suggestions database.SuggestionRepositoryInterface
	Contacts    database.ContactRepositoryInterface
	Executions  database.ExecutionRepositoryInterface
}

// NewStreamHandler creates a stream handler. window and topN size the
// analytics and summary streams.
func NewStreamHandler(notifier feed.Notifier, repos StreamRepositories, window, topN int, logger *zap.Logger) *StreamHandler {
	if window <= 0 {
		window = analytics.DefaultWindow
	}
	if topN <= 0 {
		topN = DefaultSummaryTopN
	}
	engine := analytics.NewEngine(window)

	sources := map[string]streamSource{
		string(models.CollectionCheckIns): {
			collections: []models.Collection{models.CollectionCheckIns},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				return repos.CheckIns.ListRecent(ctx, userID, DefaultPageSize)
			},
		},
		string(models.CollectionSuggestions): {
			collections: []models.Collection{models.CollectionSuggestions},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				return repos.Suggestions.ListActive(ctx, userID, DefaultPageSize)
			},
		},
		string(models.CollectionContacts): {
			collections: []models.Collection{models.CollectionContacts},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				return repos.Contacts.ListByUser(ctx, userID)
			},
		},
		string(models.CollectionExecutions): {
			collections: []models.Collection{models.CollectionExecutions},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				return repos.Executions.ListByUser(ctx, userID, DefaultPageSize)
			},
		},
		"analytics": {
			collections: []models.Collection{models.CollectionCheckIns},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				list, err := repos.CheckIns.ListRecent(ctx, userID, window)
				if err != nil {
					return nil, err
				}
				summary := engine.Analyze(list)
				return &MoodResponse{Summary: summary, Rejected: len(summary.Rejected)}, nil
			},
		},
		"summary": {
			collections: []models.Collection{models.CollectionSuggestions},
			load: func(ctx context.Context, userID uuid.UUID) (any, error) {
				list, err := repos.Suggestions.ListActive(ctx, userID, 0)
				if err != nil {
					return nil, err
				}
				return suggestions.Summarize(list, topN), nil
			},
		},
	}

	return &StreamHandler{
		notifier:  notifier,
		sources:   sources,
		heartbeat: DefaultHeartbeatInterval,
		logger:    logger,
	}
}

// RegisterRoutes registers stream routes
// The router should already have the /stream prefix
func (h *StreamHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{collection}", h.Stream).Methods("GET")
}

// Stream writes snapshots of the requested collection until the client disconnects
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["collection"]
	source, ok := h.sources[name]
	if !ok {
		respondJSONError(w, http.StatusNotFound, "Not Found", fmt.Sprintf("Unknown stream %q", name))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming is not supported")
		return
	}

	ctx := r.Context()
	snapshots, err := feed.Watch(ctx, h.notifier, user.ID, source.collections, func(ctx context.Context) (any, error) {
		return source.load(ctx, user.ID)
	})
	if err != nil {
		h.logger.Error("stream_subscribe_failed", zap.String("stream", name), zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Change feed is unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("stream_opened", zap.String("user_id", user.ID.String()), zap.String("stream", name))
	defer h.logger.Debug("stream_closed", zap.String("user_id", user.ID.String()), zap.String("stream", name))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	var seq int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			seq++
			if err := writeEvent(w, seq, name, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame. Load failures are sent as error events
// so the client keeps its last good value.
func writeEvent(w http.ResponseWriter, seq int, name string, snap feed.Snapshot[any]) error {
	event, payload := name, snap.Value
	if snap.Err != nil {
		event = "error"
		payload = map[string]string{"message": "Failed to load " + name}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, event, data)
	return err
}
