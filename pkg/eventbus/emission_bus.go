// Emission bus: specialized pub/sub for cross-canvas widget emissions.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/hkcm91/stickernest/pkg/events"
)

// EmissionHandler is called for every widget emission observed on the bus,
// including emissions originating on other canvases.
type EmissionHandler func(ctx context.Context, emission *events.WidgetEmitted) error

// EmissionPublisher publishes widget emissions.
type EmissionPublisher interface {
	PublishEmission(ctx context.Context, emission *events.WidgetEmitted) error
}

// EmissionSubscriber subscribes to widget emissions.
type EmissionSubscriber interface {
	HandleEmissions(handler EmissionHandler) error
	SubscribeToEmissions(ctx context.Context) error
}

// EmissionBus combines publishing and subscribing for widget emissions.
type EmissionBus interface {
	EmissionPublisher
	EmissionSubscriber
	Close() error
}

// watermillEmissionBus implements EmissionBus over any watermill channel
// (gochannel in-process, Kafka across processes).
type watermillEmissionBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   []EmissionHandler
	logger     *slog.Logger
}

// NewWatermillEmissionBus creates an emission bus over the given channel.
func NewWatermillEmissionBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) EmissionBus {
	return &watermillEmissionBus{
		publisher:  pub,
		subscriber: sub,
		handlers:   make([]EmissionHandler, 0),
		logger:     logger.With("module", "emission-bus"),
	}
}

// PublishEmission publishes a widget emission to the emissions topic.
func (b *watermillEmissionBus) PublishEmission(ctx context.Context, emission *events.WidgetEmitted) error {
	payload, err := json.Marshal(emission)
	if err != nil {
		b.logger.Error("Failed to marshal widget emission",
			"error", err, "source_instance_id", emission.SourceInstanceID)

		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, emission.SourceInstanceID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(emission.GetType()))

	return b.publisher.Publish(events.EmissionsTopic, msg)
}

// HandleEmissions registers a handler for emissions.
func (b *watermillEmissionBus) HandleEmissions(handler EmissionHandler) error {
	b.handlers = append(b.handlers, handler)

	return nil
}

// SubscribeToEmissions starts consuming emissions from the topic.
func (b *watermillEmissionBus) SubscribeToEmissions(ctx context.Context) error {
	if len(b.handlers) == 0 {
		b.logger.Warn("No handlers registered for emissions")

		return nil
	}

	messages, err := b.subscriber.Subscribe(ctx, events.EmissionsTopic)
	if err != nil {
		b.logger.Error("Failed to subscribe to emissions topic",
			"error", err, "topic", events.EmissionsTopic)

		return err
	}

	go func() {
		for msg := range messages {
			var emission events.WidgetEmitted
			if err := json.Unmarshal(msg.Payload, &emission); err != nil {
				b.logger.Error("Failed to unmarshal widget emission",
					"error", err, "message_id", msg.UUID)
				msg.Nack()

				continue
			}

			success := true

			for _, handler := range b.handlers {
				if err := handler(ctx, &emission); err != nil {
					b.logger.Error("Emission handler failed",
						"error", err,
						"source_instance_id", emission.SourceInstanceID)

					success = false
				}
			}

			if success {
				msg.Ack()
			} else {
				msg.Nack()
			}
		}
	}()

	return nil
}

// Close shuts down the emission bus.
func (b *watermillEmissionBus) Close() error {
	publisherErr := b.publisher.Close()

	subscriberErr := b.subscriber.Close()
	if publisherErr != nil {
		return publisherErr
	}

	return subscriberErr
}
