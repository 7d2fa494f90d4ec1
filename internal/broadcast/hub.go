package broadcast

import (
	"context"
	"sync"

	"dispatch/internal/domain"
)

// Hub is the in-process broadcaster. Subscribers register per topic;
// publishing drops events for slow subscribers rather than blocking.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan domain.Event]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan domain.Event]struct{})}
}

// Publish delivers the event to every subscriber of the topic. Full
// subscriber buffers are skipped.
func (h *Hub) Publish(ctx context.Context, topic string, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a consumer for the topic. The returned cancel
// function removes the subscription and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[chan domain.Event]struct{})
	}
	h.topics[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.topics[topic], ch)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Ensure Hub satisfies both sides of the channel.
var (
	_ Publisher  = (*Hub)(nil)
	_ Subscriber = (*Hub)(nil)
)
