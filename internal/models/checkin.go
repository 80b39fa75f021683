package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is a mood journal entry.
type CheckIn struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Emotions  []string  `json:"emotions"`
	Note      *string   `json:"note,omitempty"`
	Timestamp string    `json:"timestamp"` // Display string supplied by the client
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmotionCount returns the number of emotion labels recorded on the check-in.
func (c *CheckIn) EmotionCount() int {
	if c == nil {
		return 0
	}
	return len(c.Emotions)
}
