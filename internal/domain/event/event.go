// Package event describes the realtime notifications emitted by the messaging domain.
package event

import (
	"context"
	"time"
)

// Type names an event on the realtime channel.
type Type string

const (
	TypeMessageCreated Type = "message.created"
	TypeMessageRead    Type = "message.read"
	TypeTyping         Type = "typing"
	TypePresence       Type = "presence"
)

// Event is a notification pushed to connected clients.
type Event struct {
	Type       Type      `json:"type"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with the current UTC time.
func New(eventType Type, payload any) Event {
	return Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events to the given users. Delivery is best effort; an error never
// rolls back the state change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, userIDs []string, evt Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, []string, Event) error { return nil }
