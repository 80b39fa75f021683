package feed

import (
	"slices"
	"sync"

	"github.com/benvon/moodhome/internal/models"
)

// mailbox queues change events for one subscriber without ever blocking the
// publisher. A collection is held at most once while it waits, so a slow
// reader only loses repeats of a change it has not consumed yet.
type mailbox struct {
	mu      sync.Mutex
	pending []models.Collection

	signal chan struct{}
	done   chan struct{}
	out    chan models.Collection
	once   sync.Once
}

func newMailbox() *mailbox {
	mb := &mailbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan models.Collection),
	}
	go mb.run()
	return mb
}

// put marks collection as changed.
func (mb *mailbox) put(c models.Collection) {
	mb.mu.Lock()
	if !slices.Contains(mb.pending, c) {
		mb.pending = append(mb.pending, c)
	}
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

// close stops delivery; out is closed once the pump exits.
func (mb *mailbox) close() {
	mb.once.Do(func() { close(mb.done) })
}

func (mb *mailbox) next() (models.Collection, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.pending) == 0 {
		return "", false
	}
	c := mb.pending[0]
	mb.pending = mb.pending[1:]
	return c, true
}

func (mb *mailbox) run() {
	defer close(mb.out)
	for {
		select {
		case <-mb.done:
			return
		case <-mb.signal:
		}
		for {
			c, ok := mb.next()
			if !ok {
				break
			}
			select {
			case <-mb.done:
				return
			default:
			}
			select {
			case mb.out <- c:
			case <-mb.done:
				return
			}
		}
	}
}
