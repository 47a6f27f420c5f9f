// Package kafka provides the Kafka transport. It uses a marshaler that
// carries the Kafka message key through watermill metadata and produces true
// null values for tombstones.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/schemaflow/internal/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// KafkaCapabilities describes Kafka's delivery properties: ordered within a
// partition, acknowledged via consumer-group offsets.
var KafkaCapabilities = transport.Capabilities{
	Name:             TransportName,
	SupportsOrdering: true,
	SupportsAck:      true,
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

// Register adds the kafka transport to the default registry.
func Register() {
	transport.Register(TransportName, Build, KafkaCapabilities)
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	marshaler := Marshaler{}

	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	if clientID := cfg.GetClientID(); clientID != "" {
		saramaConfig.ClientID = clientID
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   cfg.GetKafkaBrokers(),
			Marshaler: marshaler,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               cfg.GetKafkaBrokers(),
			Unmarshaler:           marshaler,
			ConsumerGroup:         cfg.GetConsumerGroup(),
			OverwriteSaramaConfig: saramaConfig,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}
