// Package events provides the in-process event bus modules use to announce
// committed changes without depending on each other.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every published event.
type Event interface {
	// EventName is the subscription key, e.g. "balance.record.deleted".
	EventName() string
	OccurredAt() time.Time
	EventID() uuid.UUID
}

// BaseEvent carries the identity and timestamp shared by all events.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) EventID() uuid.UUID    { return e.ID }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus delivers events to the handlers subscribed under their name.
type Bus interface {
	// Publish delivers in the background; handler failures are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers inline and returns the joined handler errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
