package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/benvon/moodhome/internal/models"
)

// MemoryNotifier is an in-process Notifier for single-process deployments and tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*mailbox]struct{}
	closed bool
}

// NewMemoryNotifier creates an empty MemoryNotifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[uuid.UUID]map[*mailbox]struct{})}
}

// Publish marks collection as changed for every subscriber of userID. It
// never blocks on a slow subscriber.
func (m *MemoryNotifier) Publish(_ context.Context, userID uuid.UUID, collection models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for mb := range m.subs[userID] {
		mb.put(collection)
	}
	return nil
}

// Subscribe registers a subscriber for userID.
func (m *MemoryNotifier) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan models.Collection, func(), error) {
	mb := newMailbox()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		mb.close()
		return mb.out, func() {}, nil
	}
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[*mailbox]struct{})
	}
	m.subs[userID][mb] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subs[userID][mb]; ok {
			delete(m.subs[userID], mb)
			if len(m.subs[userID]) == 0 {
				delete(m.subs, userID)
			}
		}
		m.mu.Unlock()
		mb.close()
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-mb.done:
		}
	}()
	return mb.out, cancel, nil
}

// Close drops every subscriber.
func (m *MemoryNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for userID, set := range m.subs {
		for mb := range set {
			mb.close()
		}
		delete(m.subs, userID)
	}
	return nil
}
