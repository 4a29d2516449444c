package realtime

import (
	"context"

	"github.com/alumunity/messaging-api/internal/infrastructure/redis"
)

// EventsChannel is the redis channel shared by all instances.
const EventsChannel = "messaging:events"

// RedisBroker carries envelopes over redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

var _ Broker = (*RedisBroker)(nil)

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, channel: EventsChannel}
}

func (b *RedisBroker) Publish(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, b.channel, payload)
}

// Listen blocks until ctx ends, handing every message on the channel to handle.
func (b *RedisBroker) Listen(ctx context.Context, handle func(payload []byte)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle([]byte(msg.Payload))
		}
	}
}
