package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// MaxSuggestionsPerCheckIn caps how many suggestions one generation may yield
	MaxSuggestionsPerCheckIn = 5
	// MaxContactsInPrompt caps the contacts listed in the prompt
	MaxContactsInPrompt = 20

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

const systemPrompt = "You are a supportive wellbeing assistant. Given a mood check-in, " +
	"suggest small, concrete automations that could help the user right now. " +
	"Respond with valid JSON only."

// OpenAIProvider implements SuggestionGenerator using OpenAI's chat completions API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
	now       func() time.Time
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		// Retries are owned by the job queue.
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
		now:       time.Now,
	}
}

// NewOpenAIFactory returns a ProviderFactory reading api_key, base_url and model.
func NewOpenAIFactory(logger *zap.Logger, debugMode bool) ProviderFactory {
	return func(config map[string]string) (SuggestionGenerator, error) {
		if config["api_key"] == "" {
			return nil, errors.New("openai provider requires api_key")
		}
		return NewOpenAIProviderWithLogger(config["api_key"], config["base_url"], config["model"], logger, debugMode), nil
	}
}

// GenerateSuggestions asks the model for automations that fit the check-in.
func (p *OpenAIProvider) GenerateSuggestions(ctx context.Context, req GenerationRequest) ([]*models.AutomationSuggestion, error) {
	if req.CheckIn == nil {
		return nil, apperrors.NewGeneratorFailure("check-in is required", nil)
	}

	prompt := buildSuggestionPrompt(req, p.now())
	content, err := p.complete(ctx, "generate_suggestions", prompt)
	if err != nil {
		return nil, apperrors.NewGeneratorFailure("suggestion generation failed", err)
	}

	suggestions, err := parseSuggestionResponse(content)
	if err != nil {
		return nil, apperrors.NewGeneratorFailure("unparseable generator output", err)
	}
	return suggestions, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, operation, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	userID := ExtractUserID(ctx)
	checkInID := ExtractCheckInID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.Int("message_count", len(messages)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("user_id", userID),
			zap.String("check_in_id", checkInID),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("check_in_id", checkInID),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("chat completion: %w", apiErr)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userID),
			zap.String("check_in_id", checkInID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

// buildSuggestionPrompt renders the check-in, mood context and contacts.
// Phone numbers never leave the store.
func buildSuggestionPrompt(req GenerationRequest, now time.Time) string {
	var b strings.Builder
	c := req.CheckIn

	b.WriteString("Mood check-in\n")
	fmt.Fprintf(&b, "Current time: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Recorded at: %s\n", c.CreatedAt.UTC().Format(time.RFC3339))
	if c.Timestamp != "" {
		fmt.Fprintf(&b, "User's local time: %s\n", c.Timestamp)
	}
	if len(c.Emotions) > 0 {
		fmt.Fprintf(&b, "Emotions: %s\n", strings.Join(c.Emotions, ", "))
	} else {
		b.WriteString("Emotions: none given\n")
	}
	if c.Note != nil && strings.TrimSpace(*c.Note) != "" {
		fmt.Fprintf(&b, "Note: %s\n", strings.TrimSpace(*c.Note))
	}

	if m := req.Mood; m != nil && !m.Empty() {
		b.WriteString("\nRecent mood\n")
		fmt.Fprintf(&b, "Check-ins considered: %d\n", m.CheckIns)
		for _, s := range sortedSentiments(m.Sentiment) {
			fmt.Fprintf(&b, "%s: %d\n", s.name, s.count)
		}
		fmt.Fprintf(&b, "Most frequent emotion: %s\n", m.TopEmotion.Emotion)
	}

	if len(req.Contacts) > 0 {
		b.WriteString("\nPeople the user may reach out to\n")
		for i, ct := range req.Contacts {
			if i == MaxContactsInPrompt {
				break
			}
			if ct == nil {
				continue
			}
			frequent := ""
			if ct.IsFrequent {
				frequent = ", frequent"
			}
			fmt.Fprintf(&b, "- %s (%s%s)\n", ct.Name, ct.Relationship, frequent)
		}
	}

	b.WriteString("\nReturn a JSON object of the form:\n")
	b.WriteString(`{"suggestions":[{"title":"...","description":"...","type":"...","priority":"...","actions":["..."],"reasoning":"...","estimated_duration":"..."}]}`)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Give at most %d suggestions.\n", MaxSuggestionsPerCheckIn)
	fmt.Fprintf(&b, "type is one of: %s.\n", strings.Join(suggestionTypeNames(), ", "))
	b.WriteString("priority is one of: low, medium, high, urgent.\n")
	return b.String()
}

type sentimentCount struct {
	name  string
	count int
}

func sortedSentiments(m map[analytics.Sentiment]int) []sentimentCount {
	out := make([]sentimentCount, 0, len(m))
	for k, v := range m {
		out = append(out, sentimentCount{name: string(k), count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func suggestionTypeNames() []string {
	names := make([]string, 0, len(models.SuggestionTypes))
	for _, t := range models.SuggestionTypes {
		names = append(names, string(t))
	}
	return names
}

type suggestionPayload struct {
	Suggestions []struct {
		Title             string   `json:"title"`
		Description       string   `json:"description"`
		Type              string   `json:"type"`
		Priority          string   `json:"priority"`
		Actions           []string `json:"actions"`
		Reasoning         string   `json:"reasoning"`
		EstimatedDuration string   `json:"estimated_duration"`
	} `json:"suggestions"`
}

// parseSuggestionResponse decodes model output, tolerating prose around the
// JSON object. Entries without a title are skipped.
func parseSuggestionResponse(content string) ([]*models.AutomationSuggestion, error) {
	var payload suggestionPayload
	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		start := bytes.Index([]byte(raw), []byte("{"))
		end := bytes.LastIndex([]byte(raw), []byte("}"))
		if start == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
		}
	}

	out := make([]*models.AutomationSuggestion, 0, len(payload.Suggestions))
	for _, item := range payload.Suggestions {
		if len(out) == MaxSuggestionsPerCheckIn {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		actions := make([]string, 0, len(item.Actions))
		for _, a := range item.Actions {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, a)
			}
		}
		out = append(out, &models.AutomationSuggestion{
			Title:             title,
			Description:       strings.TrimSpace(item.Description),
			Type:              models.ParseSuggestionType(item.Type),
			Priority:          models.ParsePriority(item.Priority),
			Actions:           actions,
			Reasoning:         strings.TrimSpace(item.Reasoning),
			EstimatedDuration: strings.TrimSpace(item.EstimatedDuration),
		})
	}
	return out, nil
}

var _ SuggestionGenerator = (*OpenAIProvider)(nil)
