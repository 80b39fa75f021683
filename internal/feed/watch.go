package feed

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/benvon/moodhome/internal/models"
)

// Snapshot is one emission of a watched query.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Watch emits load's result immediately and again after every change to any
// of collections for userID. Bursts of changes are coalesced into a single
// reload. The returned channel is closed when ctx ends.
func Watch[T any](ctx context.Context, n Notifier, userID uuid.UUID, collections []models.Collection, load func(context.Context) (T, error)) (<-chan Snapshot[T], error) {
	events, cancel, err := n.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot[T])
	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			v, err := load(ctx)
			select {
			case out <- Snapshot[T]{Value: v, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-events:
				if !ok {
					return
				}
				dirty := slices.Contains(collections, c)
				// Drain whatever else is queued before reloading.
			drain:
				for {
					select {
					case c, ok := <-events:
						if !ok {
							break drain
						}
						dirty = dirty || slices.Contains(collections, c)
					default:
						break drain
					}
				}
				if dirty && !emit() {
					return
				}
			}
		}
	}()
	return out, nil
}
