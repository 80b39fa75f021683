package ai

import (
	"context"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/models"
)

// GenerationRequest is everything a generator may use to suggest automations
// for one check-in.
type GenerationRequest struct {
	CheckIn  *models.CheckIn
	Contacts []*models.Contact
	// Mood summarises the user's recent window; nil when unavailable.
	Mood *analytics.Summary
}

// SuggestionGenerator turns a check-in into zero or more automation
// suggestions. Returned suggestions carry content only; identifiers, owner
// and state are assigned when they are persisted. Any failure, including
// unparseable output, is a GENERATOR_FAILURE and yields no suggestions.
type SuggestionGenerator interface {
	GenerateSuggestions(ctx context.Context, req GenerationRequest) ([]*models.AutomationSuggestion, error)
}

// ProviderFactory creates a generator from string configuration
type ProviderFactory func(config map[string]string) (SuggestionGenerator, error)

// ProviderRegistry stores available generator providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider builds the provider registered under name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (SuggestionGenerator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
