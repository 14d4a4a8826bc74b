package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Handler processes a published event. Returned errors are logged by the
// dispatcher, never surfaced to the publisher.
type Handler func(ctx context.Context, e Event) error

// Publisher hands events to interested subscribers after the publishing
// transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
