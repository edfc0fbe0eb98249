// Package eventbus carries execution and workflow notifications over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/blitz/pkg/events"
)

// Event is a publishable notification. Its type selects the decoder on the consuming side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events. key is the workflow id and keeps one workflow's events in
// order on partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches consumed events to the handler registered for their type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.ExecutionCompleted.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}

// NopPublisher drops every event. Used when nothing listens.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error {
	return nil
}
