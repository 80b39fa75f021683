package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/benvon/moodhome/internal/models"
)

// ChangeHandler is called after a committed write to one of a user's collections.
type ChangeHandler func(ctx context.Context, userID uuid.UUID, collection models.Collection)

// changeNotifier is embedded by repositories whose writes feed subscriptions.
type changeNotifier struct {
	onChange ChangeHandler
}

// SetChangeHandler registers the function called after each committed write.
func (n *changeNotifier) SetChangeHandler(h ChangeHandler) {
	n.onChange = h
}

func (n *changeNotifier) notify(ctx context.Context, userID uuid.UUID, collections ...models.Collection) {
	if n.onChange == nil {
		return
	}
	for _, c := range collections {
		n.onChange(ctx, userID, c)
	}
}
