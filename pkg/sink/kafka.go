package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds the event-stream connection settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaSink publishes swap events to a Kafka topic for downstream
// history and analytics consumers.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a producer for cfg.Topic. Messages are keyed by
// wallet address so one wallet's events stay ordered within a partition.
func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes one swap event.
func (k *KafkaSink) Publish(ctx context.Context, event SwapCompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal swap event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.WalletAddress),
		Value: data,
		Time:  time.Now(),
	})
}

// Close flushes and closes the producer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
