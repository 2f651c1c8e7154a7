package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/hkcm91/stickernest/pkg/channels/gochannel"
	"github.com/hkcm91/stickernest/pkg/channels/kafka"
	"github.com/hkcm91/stickernest/pkg/eventbus"
)

// NewEventBus creates the lifecycle event bus for the given provider.
// "gochannel" keeps everything in-process; "kafka" spans processes.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

// NewEmissionBus creates the cross-canvas emission bus for the given
// provider.
func NewEmissionBus(provider, serviceName string, logger *slog.Logger) eventbus.EmissionBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName+"-emissions")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka emission pub/sub: %w", err))
		}

		return eventbus.NewWatermillEmissionBus(pub, sub, logger)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel emission pub/sub: %w", err))
		}

		return eventbus.NewWatermillEmissionBus(pub, sub, logger)
	default:
		panic("Unsupported emission bus provider: " + provider)
	}
}
