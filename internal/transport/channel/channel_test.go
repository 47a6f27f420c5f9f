package channel

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/schemaflow/internal/transport"
)

type stubConfig struct{}

func (stubConfig) GetTransport() string      { return TransportName }
func (stubConfig) GetKafkaBrokers() []string { return nil }
func (stubConfig) GetConsumerGroup() string  { return "" }
func (stubConfig) GetClientID() string       { return "" }

func TestRegister(t *testing.T) {
	orig := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = orig })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "channel", caps.Name)
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.SupportsAck)
}

func TestBuild(t *testing.T) {
	t.Run("creates transport with default factory", func(t *testing.T) {
		tr, err := Build(context.Background(), stubConfig{}, watermill.NopLogger{})

		require.NoError(t, err)
		assert.NotNil(t, tr.Publisher)
		assert.NotNil(t, tr.Subscriber)
	})

	t.Run("uses custom factory", func(t *testing.T) {
		origFactory := Factory
		t.Cleanup(func() { Factory = origFactory })

		var pub message.Publisher
		var sub message.Subscriber
		Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
			pubSub := gochannel.NewGoChannel(cfg, logger)
			pub, sub = pubSub, pubSub
			return pub, sub
		}

		tr, err := Build(context.Background(), stubConfig{}, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, pub, tr.Publisher)
		assert.Equal(t, sub, tr.Subscriber)
	})
}
