package broadcast

import (
	"context"

	"dispatch/internal/domain"
)

// Publisher is the fan-out channel the engine publishes ride events on.
// Implementations are best-effort: Publish must never block the mutation
// that triggered it, and a delivery failure never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, topic string, event domain.Event)
}

// Subscriber hands out per-topic event channels for in-process consumers
// such as the websocket gateway.
type Subscriber interface {
	Subscribe(topic string) (<-chan domain.Event, func())
}

// Multi fans one Publish out to several publishers.
type Multi []Publisher

// Publish sends the event to every underlying publisher.
func (m Multi) Publish(ctx context.Context, topic string, event domain.Event) {
	for _, p := range m {
		p.Publish(ctx, topic, event)
	}
}

// Nop is a Publisher that drops everything. Used in tests.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(ctx context.Context, topic string, event domain.Event) {}
