// Package channel provides an in-memory Go channel transport, useful for
// testing and local development.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/schemaflow/internal/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// ChannelCapabilities describes the in-memory transport: ordered and acked,
// within a single process.
var ChannelCapabilities = transport.Capabilities{
	Name:             TransportName,
	SupportsOrdering: true,
	SupportsAck:      true,
}

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

// Register adds the channel transport to the default registry.
func Register() {
	transport.Register(TransportName, Build, ChannelCapabilities)
}

// Build creates a new Go channel transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{}, logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}
