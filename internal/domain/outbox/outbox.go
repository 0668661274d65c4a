package outbox

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish once the publisher has been stopped.
var ErrClosed = errors.New("outbox: publisher closed")

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Keyed events carry a partition key, typically the aggregate id. Sinks use
// it to keep events of one aggregate in order.
type Keyed interface {
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// KeyOf returns the event key, or "" for events without one.
func KeyOf(e Event) string {
	if k, ok := e.(Keyed); ok {
		return k.EventKey()
	}
	return ""
}
