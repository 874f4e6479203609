package events

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/zerolog"
)

// PubSubNotifier publishes changes to a Google Cloud Pub/Sub topic. Each
// message carries the change type and location id as attributes so that
// subscriptions can filter without decoding the body.
type PubSubNotifier struct {
	publisher *pubsub.Publisher
	logger    zerolog.Logger
}

// NewPubSubNotifier publishes to topicID through client. The topic must exist.
func NewPubSubNotifier(client *pubsub.Client, topicID string, logger zerolog.Logger) *PubSubNotifier {
	return &PubSubNotifier{
		publisher: client.Publisher(topicID),
		logger:    logger.With().Str("component", "PubSubNotifier").Str("topic", topicID).Logger(),
	}
}

// Notify blocks until the server has acknowledged the message.
func (n *PubSubNotifier) Notify(ctx context.Context, change locations.Change) error {
	payload, err := encode(change)
	if err != nil {
		return err
	}
	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":           string(change.Type),
			"localizacao_id": change.Location.ID,
			"content_type":   ContentType,
		},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s change: %w", change.Type, err)
	}
	n.logger.Debug().Str("message_id", serverID).Str("change", string(change.Type)).Msg("Published change")
	return nil
}

// Close flushes pending messages.
func (n *PubSubNotifier) Close() error {
	n.publisher.Stop()
	return nil
}
