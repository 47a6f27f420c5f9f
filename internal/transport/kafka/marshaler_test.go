package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/schemaflow/internal/transport"
)

func TestMarshalCarriesKeyAndUUID(t *testing.T) {
	msg := message.NewMessage("msg-1", []byte(`{"id": 1}`))
	msg.Metadata.Set(transport.MessageKeyMetadata, "user-1")
	msg.Metadata.Set("correlation_id", "corr-1")

	produced, err := Marshaler{}.Marshal("users-out", msg)
	require.NoError(t, err)

	assert.Equal(t, "users-out", produced.Topic)
	assert.Equal(t, sarama.StringEncoder("user-1"), produced.Key)
	assert.Equal(t, sarama.ByteEncoder(msg.Payload), produced.Value)

	headers := map[string]string{}
	for _, h := range produced.Headers {
		headers[string(h.Key)] = string(h.Value)
	}
	assert.Equal(t, "msg-1", headers[kafka.UUIDHeaderKey])
	assert.Equal(t, "corr-1", headers["correlation_id"])
	assert.NotContains(t, headers, transport.MessageKeyMetadata)
}

func TestMarshalTombstoneProducesNullValue(t *testing.T) {
	msg := message.NewMessage("msg-2", nil)
	msg.Metadata.Set(transport.MessageKeyMetadata, "user-2")

	produced, err := Marshaler{}.Marshal("users-out", msg)
	require.NoError(t, err)

	assert.Nil(t, produced.Value, "tombstones must publish a null value, not an empty one")
	assert.Equal(t, sarama.StringEncoder("user-2"), produced.Key)
}

func TestMarshalWithoutKey(t *testing.T) {
	msg := message.NewMessage("msg-3", []byte(`{}`))

	produced, err := Marshaler{}.Marshal("users-out", msg)
	require.NoError(t, err)
	assert.Nil(t, produced.Key)
}

func TestMarshalRejectsReservedUUIDMetadata(t *testing.T) {
	msg := message.NewMessage("msg-4", []byte(`{}`))
	msg.Metadata.Set(kafka.UUIDHeaderKey, "smuggled")

	_, err := Marshaler{}.Marshal("users-out", msg)
	require.Error(t, err)
}

func TestUnmarshalRestoresKeyAndMetadata(t *testing.T) {
	consumed := &sarama.ConsumerMessage{
		Topic: "users",
		Key:   []byte("user-1"),
		Value: []byte(`{"id": "1"}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.UUIDHeaderKey), Value: []byte("msg-1")},
			{Key: []byte("correlation_id"), Value: []byte("corr-1")},
		},
	}

	msg, err := Marshaler{}.Unmarshal(consumed)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.UUID)
	assert.Equal(t, "user-1", msg.Metadata.Get(transport.MessageKeyMetadata))
	assert.Equal(t, "corr-1", msg.Metadata.Get("correlation_id"))
	assert.Equal(t, []byte(`{"id": "1"}`), []byte(msg.Payload))
}

func TestUnmarshalTombstone(t *testing.T) {
	consumed := &sarama.ConsumerMessage{
		Topic: "users",
		Key:   []byte("user-2"),
		Value: nil,
	}

	msg, err := Marshaler{}.Unmarshal(consumed)
	require.NoError(t, err)
	assert.Empty(t, msg.Payload)
	assert.Equal(t, "user-2", msg.Metadata.Get(transport.MessageKeyMetadata))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := message.NewMessage("msg-5", []byte(`{"id": "5"}`))
	in.Metadata.Set(transport.MessageKeyMetadata, "user-5")

	produced, err := Marshaler{}.Marshal("topic", in)
	require.NoError(t, err)

	value, err := produced.Value.Encode()
	require.NoError(t, err)
	key, err := produced.Key.Encode()
	require.NoError(t, err)

	headers := make([]*sarama.RecordHeader, len(produced.Headers))
	for i := range produced.Headers {
		headers[i] = &produced.Headers[i]
	}

	out, err := Marshaler{}.Unmarshal(&sarama.ConsumerMessage{
		Topic:   "topic",
		Key:     key,
		Value:   value,
		Headers: headers,
	})
	require.NoError(t, err)

	assert.Equal(t, in.UUID, out.UUID)
	assert.Equal(t, []byte(in.Payload), []byte(out.Payload))
	assert.Equal(t, "user-5", out.Metadata.Get(transport.MessageKeyMetadata))
}
