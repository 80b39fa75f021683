package suggestions

import (
	"time"

	"github.com/benvon/moodhome/internal/models"
)

// Dismiss moves an active suggestion to Dismissed. It reports false and leaves
// s untouched when s is already terminal.
func Dismiss(s *models.AutomationSuggestion, at time.Time) bool {
	if !s.IsActive() {
		return false
	}
	s.State = models.SuggestionStateDismissed
	s.DismissedAt = &at
	return true
}

// Execute moves an active suggestion to Executed and stamps executed_at. It
// reports false when s is already terminal; the caller must then not write a
// second execution record.
func Execute(s *models.AutomationSuggestion, at time.Time) bool {
	if !s.IsActive() {
		return false
	}
	s.State = models.SuggestionStateExecuted
	s.ExecutedAt = &at
	return true
}
