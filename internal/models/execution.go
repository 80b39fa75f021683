package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletionStatus records how far an executed suggestion was carried out
type CompletionStatus string

const (
	CompletionStatusCompleted          CompletionStatus = "completed"
	CompletionStatusPartiallyCompleted CompletionStatus = "partially_completed"
	CompletionStatusCancelled          CompletionStatus = "cancelled"
)

// Valid reports whether c is a known completion status.
func (c CompletionStatus) Valid() bool {
	switch c {
	case CompletionStatusCompleted, CompletionStatusPartiallyCompleted, CompletionStatusCancelled:
		return true
	}
	return false
}

// AutomationExecution is the append-only audit record written when a
// suggestion is executed. There is at most one per suggestion.
type AutomationExecution struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	SuggestionID     uuid.UUID        `json:"suggestion_id"`
	CheckInID        uuid.UUID        `json:"check_in_id"`
	ActionTaken      string           `json:"action_taken"`
	ExecutedAt       time.Time        `json:"executed_at"`
	WasHelpful       *bool            `json:"was_helpful,omitempty"`
	Feedback         *string          `json:"feedback,omitempty"`
	CompletionStatus CompletionStatus `json:"completion_status"`
}
