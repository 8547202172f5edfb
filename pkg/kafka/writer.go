package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
)

// Writer publishes records of type T. Records sharing a key land on the same
// partition and keep their relative order.
type Writer[T any] struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewWriter[T any](cfg config.KafkaConfig) *Writer[T] {
	return &Writer[T]{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		logger: slog.Default().With("component", "kafka-writer", "topic", cfg.Topic),
	}
}

// Write encodes values and sends them synchronously in one call.
func (w *Writer[T]) Write(ctx context.Context, key string, values ...T) error {
	if len(values) == 0 {
		return nil
	}
	msgs, err := encode(key, values)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d records to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("records written", "key", key, "count", len(msgs))
	return nil
}

// Close flushes pending writes.
func (w *Writer[T]) Close() error {
	return w.writer.Close()
}

func encode[T any](key string, values []T) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding record %d: %w", i, err)
		}
		msgs[i] = kafka.Message{Key: []byte(key), Value: data}
	}
	return msgs, nil
}
