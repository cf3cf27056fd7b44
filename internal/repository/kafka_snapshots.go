package repository

import (
	"context"
	"fmt"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	pkgkafka "ConeCast/pkg/kafka"
)

// KafkaSnapshotSink publishes snapshot records to a Kafka topic, keyed
// by symbol so per-instrument ordering survives partitioning.
type KafkaSnapshotSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotSink creates the sink.
func NewKafkaSnapshotSink(producer *pkgkafka.Producer, topic string) *KafkaSnapshotSink {
	return &KafkaSnapshotSink{producer: producer, topic: topic}
}

// Emit publishes one record.
func (s *KafkaSnapshotSink) Emit(ctx context.Context, rec *models.SnapshotRecord) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(rec.Symbol), rec); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (s *KafkaSnapshotSink) Close() error {
	return s.producer.Close()
}

var _ drepo.SnapshotSink = (*KafkaSnapshotSink)(nil)
