package metrics

import (
	"context"

	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
)

// EventRecorder counts domain events before handing them to the next publisher.
type EventRecorder struct {
	next event.Publisher
}

// NewEventRecorder wraps next. A nil next drops events after counting.
func NewEventRecorder(next event.Publisher) *EventRecorder {
	if next == nil {
		next = event.NoopPublisher{}
	}
	return &EventRecorder{next: next}
}

func (r *EventRecorder) Publish(ctx context.Context, userIDs []string, evt event.Event) error {
	switch payload := evt.Payload.(type) {
	case messaging.MessageCreatedPayload:
		kind := ""
		if payload.AttachmentType != nil {
			kind = string(*payload.AttachmentType)
		}
		RecordMessageSent(kind)
	case messaging.MessageReadPayload:
		source := "open"
		if len(payload.MessageIDs) > 0 {
			source = "explicit"
		}
		RecordReadReceipts(source, int(payload.Count))
	}
	return r.next.Publish(ctx, userIDs, evt)
}
