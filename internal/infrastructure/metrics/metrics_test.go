package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
)

func TestRecordMessageSentDefaultsLabel(t *testing.T) {
	before := testutil.ToFloat64(MessagesSentTotal.WithLabelValues("none"))
	RecordMessageSent("")
	assert.Equal(t, before+1, testutil.ToFloat64(MessagesSentTotal.WithLabelValues("none")))
}

func TestRecordReadReceiptsIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("open"))
	RecordReadReceipts("open", 0)
	RecordReadReceipts("open", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("open")))
}

func TestGauges(t *testing.T) {
	SetMockMode(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(MockMode))
	SetMockMode(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(MockMode))

	SetRealtimeConnections(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(RealtimeConnections))
}

func TestRecordRequestUnmatchedEndpoint(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordRequest("GET", "", 404, 0.01)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

type countingPublisher struct{ calls int }

func (p *countingPublisher) Publish(context.Context, []string, event.Event) error {
	p.calls++
	return nil
}

func TestEventRecorder(t *testing.T) {
	next := &countingPublisher{}
	rec := NewEventRecorder(next)
	ctx := context.Background()
	image := messaging.AttachmentImage

	sent := testutil.ToFloat64(MessagesSentTotal.WithLabelValues("image"))
	opened := testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("open"))
	explicit := testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("explicit"))

	require.NoError(t, rec.Publish(ctx, []string{"a", "b"}, event.New(event.TypeMessageCreated, messaging.MessageCreatedPayload{AttachmentType: &image})))
	require.NoError(t, rec.Publish(ctx, []string{"a"}, event.New(event.TypeMessageRead, messaging.MessageReadPayload{Count: 4})))
	require.NoError(t, rec.Publish(ctx, []string{"a"}, event.New(event.TypeMessageRead, messaging.MessageReadPayload{MessageIDs: []string{"m1"}, Count: 1})))
	require.NoError(t, rec.Publish(ctx, []string{"a"}, event.New(event.TypeTyping, map[string]bool{"typing": true})))

	assert.Equal(t, sent+1, testutil.ToFloat64(MessagesSentTotal.WithLabelValues("image")))
	assert.Equal(t, opened+4, testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("open")))
	assert.Equal(t, explicit+1, testutil.ToFloat64(ReadReceiptsTotal.WithLabelValues("explicit")))
	assert.Equal(t, 4, next.calls)
}
