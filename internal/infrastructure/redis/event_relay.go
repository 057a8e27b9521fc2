package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"staybid/internal/domain"
	"staybid/pkg/logger"
)

const relayChannel = "staybid_auction_events"

// EventRelay mirrors committed engine events across instances: every
// broadcast is published on a Redis channel, and the relay re-broadcasts
// events originating on peer instances into the local hub.
type EventRelay struct {
	client     *redis.Client
	instanceID string
	log        logger.Logger
}

func NewEventRelay(client *redis.Client, instanceID string, log logger.Logger) *EventRelay {
	return &EventRelay{
		client:     client,
		instanceID: instanceID,
		log:        log,
	}
}

func (r *EventRelay) Publish(ctx context.Context, event *domain.AuctionEvent, excludeUserID string) error {
	envelope := domain.EventEnvelope{
		Origin:        r.instanceID,
		ExcludeUserID: excludeUserID,
		Event:         event,
	}
	data, err := json.Marshal(&envelope)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, data).Err()
}

// Run delivers peers' events into local until ctx is cancelled.
func (r *EventRelay) Run(ctx context.Context, local domain.Broadcaster) error {
	pubsub := r.client.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to auction event relay", "channel", relayChannel)

	for {
		select {
		case msg := <-ch:
			var envelope domain.EventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.log.Error("Failed to parse relayed event", "payload", msg.Payload, "error", err)
				continue
			}
			if envelope.Origin == r.instanceID || envelope.Event == nil {
				continue
			}
			local.Broadcast(envelope.Event.AuctionID, envelope.Event, envelope.ExcludeUserID)

		case <-ctx.Done():
			r.log.Info("Event relay stopped")
			return ctx.Err()
		}
	}
}

// RelayBroadcaster fans out locally and publishes to the relay channel so
// peer instances can reach their own subscribers. Relay failures are logged;
// the local delivery already happened.
type RelayBroadcaster struct {
	local domain.Broadcaster
	relay *EventRelay
	log   logger.Logger
}

func NewRelayBroadcaster(local domain.Broadcaster, relay *EventRelay, log logger.Logger) *RelayBroadcaster {
	return &RelayBroadcaster{local: local, relay: relay, log: log}
}

func (b *RelayBroadcaster) Broadcast(auctionID string, event *domain.AuctionEvent, excludeUserID string) {
	b.local.Broadcast(auctionID, event, excludeUserID)

	if err := b.relay.Publish(context.Background(), event, excludeUserID); err != nil {
		b.log.Error("Failed to relay event", "auction_id", auctionID,
			"type", event.Type, "error", err)
	}
}
