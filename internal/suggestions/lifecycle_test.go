package suggestions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/benvon/moodhome/internal/models"
)

func TestDismiss_Idempotent(t *testing.T) {
	t.Parallel()

	s := suggestion(models.PriorityHigh, 1)
	at := base.Add(time.Hour)

	assert.True(t, Dismiss(s, at))
	assert.Equal(t, models.SuggestionStateDismissed, s.State)
	assert.Equal(t, at, *s.DismissedAt)

	assert.False(t, Dismiss(s, at.Add(time.Hour)))
	assert.Equal(t, models.SuggestionStateDismissed, s.State)
	assert.Equal(t, at, *s.DismissedAt)
}

func TestExecute_Idempotent(t *testing.T) {
	t.Parallel()

	s := suggestion(models.PriorityHigh, 1)
	at := base.Add(time.Hour)

	assert.True(t, Execute(s, at))
	assert.Equal(t, models.SuggestionStateExecuted, s.State)
	assert.Equal(t, at, *s.ExecutedAt)
	assert.False(t, Execute(s, at.Add(time.Minute)))
	assert.Equal(t, at, *s.ExecutedAt)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	t.Parallel()

	dismissed := suggestion(models.PriorityLow, 1)
	Dismiss(dismissed, base)
	assert.False(t, Execute(dismissed, base))
	assert.Equal(t, models.SuggestionStateDismissed, dismissed.State)
	assert.Nil(t, dismissed.ExecutedAt)

	executed := suggestion(models.PriorityLow, 1)
	Execute(executed, base)
	assert.False(t, Dismiss(executed, base))
	assert.Equal(t, models.SuggestionStateExecuted, executed.State)
}
