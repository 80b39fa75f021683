// Package feed delivers change notifications for a user's collections and
// turns them into continuous snapshot streams.
package feed

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/moodhome/internal/models"
)

// Notifier publishes and subscribes to per-user change events.
type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, collection models.Collection) error
	// Subscribe returns a channel of changed collections for userID. The
	// channel is closed after cancel is called or ctx ends.
	Subscribe(ctx context.Context, userID uuid.UUID) (events <-chan models.Collection, cancel func(), err error)
	Close() error
}

// ChangeHandler adapts n to the store's change callback. Publish failures are
// logged; subscribers only lose freshness, never data.
func ChangeHandler(n Notifier, logger *zap.Logger) func(ctx context.Context, userID uuid.UUID, collection models.Collection) {
	return func(ctx context.Context, userID uuid.UUID, collection models.Collection) {
		if err := n.Publish(context.WithoutCancel(ctx), userID, collection); err != nil {
			logger.Warn("change_notification_failed",
				zap.String("user_id", userID.String()),
				zap.String("collection", string(collection)),
				zap.Error(err),
			)
		}
	}
}
