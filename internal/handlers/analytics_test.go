package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMood(t *testing.T) {
	t.Parallel()

	user := testUser()
	base := time.Now()
	checkIns := []*models.CheckIn{
		{ID: uuid.New(), UserID: user.ID, Emotions: []string{"Anxious"}, CreatedAt: base.Add(2 * time.Second)},
		{ID: uuid.New(), UserID: user.ID, Emotions: []string{"Sad", "Happy"}, CreatedAt: base.Add(time.Second)},
		{ID: uuid.New(), UserID: user.ID, Emotions: []string{"Happy"}, CreatedAt: base},
	}
	var gotLimit int
	repo := &mockCheckInRepo{listRecentFn: func(_ context.Context, _ uuid.UUID, limit int) ([]*models.CheckIn, error) {
		gotLimit = limit
		return checkIns, nil
	}}
	h := NewAnalyticsHandler(repo, 0, zap.NewNop())

	w := serve(t, h.RegisterRoutes, "/analytics", user, jsonRequest(http.MethodGet, "/analytics/mood", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, analytics.DefaultWindow, gotLimit)

	var got MoodResponse
	decodeEnvelope(t, w, &got)
	require.NotNil(t, got.Summary)
	assert.Equal(t, map[string]int{"Happy": 2, "Sad": 1, "Anxious": 1}, got.Frequencies)
	assert.Equal(t, 2, got.Sentiment[analytics.Positive])
	assert.Equal(t, 0, got.Sentiment[analytics.Neutral])
	assert.Equal(t, 2, got.Sentiment[analytics.Negative])
	assert.Equal(t, "Happy", got.TopEmotion.Emotion)
	assert.Equal(t, "😄", got.TopEmotion.Glyph)
	assert.Zero(t, got.Rejected)
}

func TestMood_WindowParam(t *testing.T) {
	t.Parallel()

	var gotLimit int
	repo := &mockCheckInRepo{listRecentFn: func(_ context.Context, _ uuid.UUID, limit int) ([]*models.CheckIn, error) {
		gotLimit = limit
		return nil, nil
	}}
	h := NewAnalyticsHandler(repo, 100, zap.NewNop())

	w := serve(t, h.RegisterRoutes, "/analytics", testUser(), jsonRequest(http.MethodGet, "/analytics/mood?window=7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, gotLimit)

	var got MoodResponse
	decodeEnvelope(t, w, &got)
	assert.Equal(t, 7, got.Window)
	assert.Equal(t, analytics.DefaultEmotion, got.TopEmotion.Emotion)

	w = serve(t, h.RegisterRoutes, "/analytics", testUser(), jsonRequest(http.MethodGet, "/analytics/mood?window=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMood_RejectedRecordsCounted(t *testing.T) {
	t.Parallel()

	repo := &mockCheckInRepo{listRecentFn: func(context.Context, uuid.UUID, int) ([]*models.CheckIn, error) {
		return []*models.CheckIn{{ID: uuid.New(), Emotions: []string{"Calm", " "}}, nil}, nil
	}}
	h := NewAnalyticsHandler(repo, 10, zap.NewNop())

	w := serve(t, h.RegisterRoutes, "/analytics", testUser(), jsonRequest(http.MethodGet, "/analytics/mood", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got MoodResponse
	decodeEnvelope(t, w, &got)
	assert.Equal(t, 2, got.Rejected)
	assert.Equal(t, 1, got.Occurrences)
}
