// Package eventbus carries workflow events between editor sessions and their subscribers.
package eventbus

import (
	"context"

	"github.com/dukex/flowedit/pkg/events"
)

// Event is any message published on the bus. GetType selects the handlers that receive it.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes workflow events. The key, normally the workflow id, travels
// in the message metadata.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes delivered events to the handler registered for their type.
// Handlers must be registered before Subscribe is called.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event. Returning an error nacks the message.
type EventHandler func(ctx context.Context, event any) error

// EventBus is a publisher and subscriber over one transport, either the in-process
// channel or Kafka.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
