// Package kafka moves typed, JSON-encoded records over segmentio/kafka-go.
// A Reader commits a record only once its handler has accepted it, and never
// fetches past a record it has not applied.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// Handler applies one decoded record. Returning resilience.Permanent means
// the record can never apply; the Reader then stops instead of skipping it.
type Handler[T any] func(ctx context.Context, key string, value T) error

const (
	fetchBackoff = time.Second
	stallBackoff = 5 * time.Second
)

// source is the part of *kafka.Reader a Reader drives.
type source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Reader[T any] struct {
	src    source
	handle Handler[T]
	retry  resilience.RetryConfig
	stall  time.Duration
	logger *slog.Logger
}

// NewReader joins cfg.ConsumerGroup on cfg.Topic. A fresh group starts at
// the earliest offset so a topic can rebuild the index from scratch.
func NewReader[T any](cfg config.KafkaConfig, handle Handler[T]) *Reader[T] {
	logger := slog.Default().With("component", "kafka-reader", "topic", cfg.Topic)
	return &Reader[T]{
		src: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.FirstOffset,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Error(fmt.Sprintf(msg, args...))
			}),
		}),
		handle: handle,
		retry:  resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond},
		stall:  stallBackoff,
		logger: logger,
	}
}

// Run fetches and applies records in order until ctx is cancelled. It
// returns an error only when a record fails permanently; that record is
// left uncommitted so the group redelivers it after a restart.
func (r *Reader[T]) Run(ctx context.Context) error {
	defer r.src.Close()
	r.logger.Info("reader started")
	for {
		msg, err := r.src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("reader stopping", "reason", ctx.Err())
				return nil
			}
			r.logger.Error("fetch failed", "error", err)
			if !sleep(ctx, fetchBackoff) {
				return nil
			}
			continue
		}
		if err := r.apply(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		}
		if err := r.src.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			// A later commit covers this offset.
			r.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// apply decodes msg and hands it to the handler until it is accepted.
// Undecodable records are acknowledged so they cannot wedge the partition.
// Transient failures are retried in place, pausing between rounds, for as
// long as ctx lives.
func (r *Reader[T]) apply(ctx context.Context, msg kafka.Message) error {
	log := r.logger.With("partition", msg.Partition, "offset", msg.Offset)
	var value T
	if err := json.Unmarshal(msg.Value, &value); err != nil {
		log.Error("dropping undecodable record", "key", string(msg.Key), "error", err)
		return nil
	}
	for {
		permanent := false
		err := resilience.Retry(ctx, "kafka-handle", r.retry, func() error {
			herr := r.handle(ctx, string(msg.Key), value)
			permanent = resilience.IsPermanent(herr)
			return herr
		})
		switch {
		case err == nil:
			return nil
		case permanent:
			log.Error("record cannot be applied", "error", err)
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}
		log.Warn("record not applied yet, holding partition", "error", err, "next_round", r.stall)
		if !sleep(ctx, r.stall) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
