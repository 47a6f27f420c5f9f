package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/schemaflow/internal/transport"
)

// Marshaler converts between watermill and sarama messages. It differs from
// the stock watermill-kafka marshaler in two ways that matter for a sink
// connector upstream:
//
//   - The Kafka message key is surfaced as transport.MessageKeyMetadata on
//     consume and written back from it on publish, so handlers can preserve
//     keys without knowing about Kafka.
//   - An empty watermill payload publishes as a null Kafka value, which is
//     what makes the downstream connector treat the record as a delete.
type Marshaler struct{}

var _ kafka.MarshalerUnmarshaler = Marshaler{}

// Marshal converts a watermill message into a sarama producer message.
func (Marshaler) Marshal(topic string, msg *message.Message) (*sarama.ProducerMessage, error) {
	if value := msg.Metadata.Get(kafka.UUIDHeaderKey); value != "" {
		return nil, fmt.Errorf("metadata %s is reserved for message UUID", kafka.UUIDHeaderKey)
	}

	headers := []sarama.RecordHeader{{
		Key:   []byte(kafka.UUIDHeaderKey),
		Value: []byte(msg.UUID),
	}}

	var key sarama.Encoder
	for k, v := range msg.Metadata {
		if k == transport.MessageKeyMetadata {
			key = sarama.StringEncoder(v)
			continue
		}
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}

	// nil Value, not an empty ByteEncoder: tombstones must publish as a
	// true null value or downstream delete semantics never fire.
	var value sarama.Encoder
	if len(msg.Payload) > 0 {
		value = sarama.ByteEncoder(msg.Payload)
	}

	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
	}, nil
}

// Unmarshal converts a sarama consumer message into a watermill message.
func (Marshaler) Unmarshal(kafkaMsg *sarama.ConsumerMessage) (*message.Message, error) {
	var messageID string
	metadata := make(message.Metadata, len(kafkaMsg.Headers)+1)

	for _, header := range kafkaMsg.Headers {
		if string(header.Key) == kafka.UUIDHeaderKey {
			messageID = string(header.Value)
			continue
		}
		metadata.Set(string(header.Key), string(header.Value))
	}

	if len(kafkaMsg.Key) > 0 {
		metadata.Set(transport.MessageKeyMetadata, string(kafkaMsg.Key))
	}

	msg := message.NewMessage(messageID, kafkaMsg.Value)
	msg.Metadata = metadata

	return msg, nil
}
