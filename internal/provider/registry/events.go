package registry

import (
	"sync"
	"time"

	"github.com/orchestr8/federation/internal/provider"
)

// EventType names a registry state change.
type EventType string

const (
	EventHealthChanged    EventType = "health_changed"
	EventProviderDisabled EventType = "provider_disabled"
	EventProviderEnabled  EventType = "provider_enabled"
)

// Event is one observable registry state change.
type Event struct {
	Type     EventType             `json:"type"`
	Provider string                `json:"provider"`
	From     provider.HealthStatus `json:"from,omitempty"`
	To       provider.HealthStatus `json:"to,omitempty"`
	At       time.Time             `json:"at"`
}

// eventBus fans events out to subscribers. Slow subscribers drop events
// rather than block the health loop.
type eventBus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel and an unsubscribe func.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	return r.events.subscribe()
}

func (b *eventBus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[chan Event]struct{})
}
