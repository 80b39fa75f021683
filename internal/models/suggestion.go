package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SuggestionType tags what kind of automation a suggestion proposes
type SuggestionType string

const (
	SuggestionTypeSmartHome     SuggestionType = "smart_home"
	SuggestionTypeSocialSupport SuggestionType = "social_support"
	SuggestionTypeWellness      SuggestionType = "wellness"
	SuggestionTypeTherapeutic   SuggestionType = "therapeutic"
	SuggestionTypeEmergency     SuggestionType = "emergency"
)

// SuggestionTypes lists every known suggestion type.
var SuggestionTypes = []SuggestionType{
	SuggestionTypeSmartHome,
	SuggestionTypeSocialSupport,
	SuggestionTypeWellness,
	SuggestionTypeTherapeutic,
	SuggestionTypeEmergency,
}

// Valid reports whether t is one of the known suggestion types.
func (t SuggestionType) Valid() bool {
	for _, known := range SuggestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseSuggestionType normalizes free-form generator output ("Smart Home",
// "social-support") into a SuggestionType. Unknown values map to wellness.
func ParseSuggestionType(s string) SuggestionType {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	t := SuggestionType(norm)
	if t.Valid() {
		return t
	}
	return SuggestionTypeWellness
}

// Priority is the urgency tag attached to a suggestion
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a recognised priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParsePriority lowercases and trims s. Unrecognised values are returned as-is
// so that ranking can treat them as the lowest rank.
func ParsePriority(s string) Priority {
	return Priority(strings.ToLower(strings.TrimSpace(s)))
}

// SuggestionState is the lifecycle state of a suggestion.
// Active is the only non-terminal state.
type SuggestionState string

const (
	SuggestionStateActive    SuggestionState = "active"
	SuggestionStateDismissed SuggestionState = "dismissed"
	SuggestionStateExecuted  SuggestionState = "executed"
)

// Terminal reports whether no further transition is possible from s.
func (s SuggestionState) Terminal() bool {
	return s == SuggestionStateDismissed || s == SuggestionStateExecuted
}

// AutomationSuggestion is an AI-produced recommendation tied to one check-in
type AutomationSuggestion struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	CheckInID         uuid.UUID       `json:"check_in_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Type              SuggestionType  `json:"type"`
	Priority          Priority        `json:"priority"`
	Actions           []string        `json:"actions"`
	Reasoning         string          `json:"reasoning"`
	EstimatedDuration string          `json:"estimated_duration"`
	State             SuggestionState `json:"state"`
	CreatedAt         time.Time       `json:"created_at"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty"`
	DismissedAt       *time.Time      `json:"dismissed_at,omitempty"`
}

// IsActive reports whether the suggestion is neither dismissed nor executed.
func (s *AutomationSuggestion) IsActive() bool {
	return s != nil && s.State == SuggestionStateActive
}
