package kafka

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/schemaflow/internal/transport"
)

type stubConfig struct{}

func (stubConfig) GetTransport() string      { return TransportName }
func (stubConfig) GetKafkaBrokers() []string { return []string{"broker1:9092"} }
func (stubConfig) GetConsumerGroup() string  { return "schemaflow" }
func (stubConfig) GetClientID() string       { return "schemaflow-1" }

type stubPublisher struct{}

func (stubPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (stubPublisher) Close() error                                             { return nil }

type stubSubscriber struct{}

func (stubSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (stubSubscriber) Close() error { return nil }

func TestRegister(t *testing.T) {
	orig := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = orig })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "kafka", caps.Name)
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.SupportsAck)
}

func TestBuildUsesFactories(t *testing.T) {
	origPub := PublisherFactory
	origSub := SubscriberFactory
	t.Cleanup(func() {
		PublisherFactory = origPub
		SubscriberFactory = origSub
	})

	pub := stubPublisher{}
	sub := stubSubscriber{}
	PublisherFactory = func(cfg kafka.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		assert.Equal(t, []string{"broker1:9092"}, cfg.Brokers)
		assert.IsType(t, Marshaler{}, cfg.Marshaler)
		return pub, nil
	}
	SubscriberFactory = func(cfg kafka.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		assert.Equal(t, "schemaflow", cfg.ConsumerGroup)
		require.NotNil(t, cfg.OverwriteSaramaConfig)
		assert.Equal(t, "schemaflow-1", cfg.OverwriteSaramaConfig.ClientID)
		return sub, nil
	}

	tr, err := Build(context.Background(), stubConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, pub, tr.Publisher)
	assert.Equal(t, sub, tr.Subscriber)
}
