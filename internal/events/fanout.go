package events

import (
	"sync"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Publisher receives match events. Implementations must not block.
type Publisher interface {
	Publish(event model.Event)
}

// Fanout forwards every event to each of its subscribers in turn
type Fanout struct {
	mu          sync.RWMutex
	subscribers []Publisher
}

// NewFanout creates a Fanout with the given subscribers
func NewFanout(subscribers ...Publisher) *Fanout {
	return &Fanout{subscribers: subscribers}
}

// Subscribe adds a subscriber
func (f *Fanout) Subscribe(p Publisher) {
	f.mu.Lock()
	f.subscribers = append(f.subscribers, p)
	f.mu.Unlock()
}

// Publish forwards the event
func (f *Fanout) Publish(event model.Event) {
	f.mu.RLock()
	subscribers := f.subscribers
	f.mu.RUnlock()

	for _, s := range subscribers {
		s.Publish(event)
	}
}
