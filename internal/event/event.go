package event

import (
	"time"

	"github.com/segmentio/ksuid"

	"github.com/dshills/pulse/internal/event/topic"
)

// Metadata is standard information attached to every event.
type Metadata struct {
	// ID uniquely identifies this event instance. IDs are ksuids, so they
	// sort by creation time.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that emitted the event.
	Source string
}

// Event is a typed event. Events are immutable once created.
type Event[T any] struct {
	// Topic is the concrete event key (e.g. "auth.login").
	Topic topic.Topic

	// Payload is the event-specific data.
	Payload T

	// Meta is standard event information.
	Meta Metadata
}

// NewEvent creates a typed event with fresh metadata.
func NewEvent[T any](t topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Topic:   t,
		Payload: payload,
		Meta: Metadata{
			ID:        newID(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// Envelope returns the type-erased form of the event.
func (e Event[T]) Envelope() Envelope {
	return Envelope{Topic: e.Topic, Payload: e.Payload, Meta: e.Meta}
}

// Envelope is the type-erased event form the bus delivers to handlers.
type Envelope struct {
	// Topic is the concrete event key.
	Topic topic.Topic

	// Payload is the type-erased event payload.
	Payload any

	// Meta is standard event information.
	Meta Metadata
}

// NewEnvelope creates an envelope with fresh metadata.
func NewEnvelope(t topic.Topic, payload any, source string) Envelope {
	return Envelope{
		Topic:   t,
		Payload: payload,
		Meta: Metadata{
			ID:        newID(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EnvelopeProvider is implemented by types that can express themselves
// as an Envelope. Event[T] implements it.
type EnvelopeProvider interface {
	Envelope() Envelope
}

// toEnvelope converts an emitted value to an Envelope.
func toEnvelope(event any) (Envelope, bool) {
	switch ev := event.(type) {
	case Envelope:
		return ev, true
	case EnvelopeProvider:
		return ev.Envelope(), true
	default:
		return Envelope{}, false
	}
}

// newID generates a unique, time-sortable identifier.
func newID() string {
	return ksuid.New().String()
}
