package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/blitz/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092,"))
	assert.Empty(t, ParseBrokers(""))
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "blitz-api")
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("m-1", []byte("{}"))
	msg.Metadata.Set(events.EventMetadataKey, "wf-1")

	key, err := PartitionKey(events.Topic, msg)
	assert.NoError(t, err)
	assert.Equal(t, "wf-1", key)
}

func TestProducerConfig(t *testing.T) {
	cfg := producerConfig()

	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForLocal, cfg.Producer.RequiredAcks)
	assert.Equal(t, sarama.OffsetOldest, consumerConfig().Consumer.Offsets.Initial)
}
