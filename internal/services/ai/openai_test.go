package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewOpenAIProviderWithLogger("sk-test-key-123456", srv.URL, "", nil, false)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return p
}

func testCheckIn() *models.CheckIn {
	note := "long day"
	return &models.CheckIn{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Emotions:  []string{"Tired", "Anxious"},
		Note:      &note,
		Timestamp: "9:00 AM",
		CreatedAt: time.Date(2026, 3, 1, 8, 59, 0, 0, time.UTC),
	}
}

func TestGenerateSuggestions(t *testing.T) {
	var gotPrompt string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		gotPrompt = req.Messages[1].Content

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"suggestions":[
			{"title":"Call Sam","description":"Catch up","type":"contact","priority":"HIGH","actions":[" dial ",""],"reasoning":"social","estimated_duration":"10 min"},
			{"title":"  ","type":"wellness","priority":"low"},
			{"title":"Breathe","type":"breathing exercise","priority":"whenever"}
		]}`)))
	})

	req := GenerationRequest{
		CheckIn: testCheckIn(),
		Contacts: []*models.Contact{
			{Name: "Sam", PhoneNumber: "+15550100", Relationship: models.Relationship("friend"), IsFrequent: true},
		},
	}
	got, err := p.GenerateSuggestions(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Call Sam", got[0].Title)
	assert.Equal(t, models.ParseSuggestionType("contact"), got[0].Type)
	assert.Equal(t, models.Priority("high"), got[0].Priority)
	assert.Equal(t, []string{"dial"}, got[0].Actions)
	assert.Equal(t, "10 min", got[0].EstimatedDuration)

	assert.Equal(t, "Breathe", got[1].Title)
	assert.Equal(t, models.ParseSuggestionType("breathing exercise"), got[1].Type)
	assert.Equal(t, models.Priority("whenever"), got[1].Priority)

	assert.Contains(t, gotPrompt, "Tired, Anxious")
	assert.Contains(t, gotPrompt, "Sam (friend, frequent)")
	assert.NotContains(t, gotPrompt, "+15550100")
}

func TestGenerateSuggestionsUnparseable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("I cannot help with that")))
	})

	got, err := p.GenerateSuggestions(context.Background(), GenerationRequest{CheckIn: testCheckIn()})
	assert.Nil(t, got)
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailure))
}

func TestGenerateSuggestionsAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := p.GenerateSuggestions(context.Background(), GenerationRequest{CheckIn: testCheckIn()})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailure))
	assert.True(t, IsRateLimitError(err))
	assert.GreaterOrEqual(t, GetRetryDelay(err, 0), 60*time.Second)
}

func TestGenerateSuggestionsRequiresCheckIn(t *testing.T) {
	p := NewOpenAIProvider("sk-test", "")
	_, err := p.GenerateSuggestions(context.Background(), GenerationRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailure))
}

func TestParseSuggestionResponse(t *testing.T) {
	t.Run("prose around json", func(t *testing.T) {
		got, err := parseSuggestionResponse("Sure!\n{\"suggestions\":[{\"title\":\"Walk\",\"priority\":\"medium\"}]}\nEnjoy.")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Walk", got[0].Title)
		assert.Equal(t, models.ParseSuggestionType(""), got[0].Type)
	})

	t.Run("empty list", func(t *testing.T) {
		got, err := parseSuggestionResponse(`{"suggestions":[]}`)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("capped", func(t *testing.T) {
		var items []string
		for i := 0; i < MaxSuggestionsPerCheckIn+3; i++ {
			items = append(items, `{"title":"t","priority":"low"}`)
		}
		got, err := parseSuggestionResponse(`{"suggestions":[` + strings.Join(items, ",") + `]}`)
		require.NoError(t, err)
		assert.Len(t, got, MaxSuggestionsPerCheckIn)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseSuggestionResponse("{not json}")
		assert.Error(t, err)
	})
}

func TestBuildSuggestionPromptMood(t *testing.T) {
	c := testCheckIn()
	summary := analytics.NewEngine(10).Analyze([]*models.CheckIn{c})
	prompt := buildSuggestionPrompt(GenerationRequest{CheckIn: c, Mood: summary}, time.Now())
	assert.Contains(t, prompt, "Recent mood")
	assert.Contains(t, prompt, "Most frequent emotion: Tired")
	assert.Contains(t, prompt, "User's local time: 9:00 AM")
}

func TestProviderRegistry(t *testing.T) {
	r := NewProviderRegistry()
	r.Register("openai", NewOpenAIFactory(nil, false))

	_, err := r.GetProvider("missing", nil)
	var notFound *ErrProviderNotFound
	assert.ErrorAs(t, err, &notFound)

	_, err = r.GetProvider("openai", map[string]string{})
	assert.Error(t, err)

	g, err := r.GetProvider("openai", map[string]string{"api_key": "sk-abc"})
	require.NoError(t, err)
	assert.NotNil(t, g)
}
