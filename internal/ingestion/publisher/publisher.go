// Package publisher turns document changes into ingest events on Kafka for
// the index consumer to apply.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
)

// EventWriter is satisfied by *kafka.Writer[ingestion.IngestEvent].
type EventWriter interface {
	Write(ctx context.Context, key string, events ...ingestion.IngestEvent) error
}

// Publisher validates and publishes ingest events.
type Publisher struct {
	writer    EventWriter
	batchSize int
	logger    *slog.Logger
}

const defaultBatchSize = 100

func New(writer EventWriter) *Publisher {
	return &Publisher{
		writer:    writer,
		batchSize: defaultBatchSize,
		logger:    slog.Default().With("component", "publisher"),
	}
}

// partitionKey is shared by every event so they land on one partition. The
// consumer assigns document IDs in consumption order, so the order of adds,
// reindexes and deletes must be total.
const partitionKey = "ingest"

// Add publishes an add event for each text, in order, batching writes.
func (p *Publisher) Add(ctx context.Context, texts []string, fields map[string]string) (int, error) {
	published := 0
	batch := make([]ingestion.IngestEvent, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(ctx, partitionKey, batch...); err != nil {
			return fmt.Errorf("publishing batch at offset %d: %w", published, err)
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}
	for _, text := range texts {
		event := ingestion.IngestEvent{
			Op:        ingestion.OpAdd,
			Text:      text,
			Fields:    fields,
			EmittedAt: time.Now().UTC(),
		}
		if err := validator.ValidateIngestEvent(&event); err != nil {
			p.logger.Warn("skipping invalid document", "error", err)
			continue
		}
		batch = append(batch, event)
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return published, err
			}
		}
	}
	if err := flush(); err != nil {
		return published, err
	}
	p.logger.Info("documents published", "count", published)
	return published, nil
}

// Reindex publishes a replacement for an existing document.
func (p *Publisher) Reindex(ctx context.Context, id uint64, text string, fields map[string]string) error {
	return p.publish(ctx, ingestion.IngestEvent{
		Op:         ingestion.OpReindex,
		DocumentID: id,
		Text:       text,
		Fields:     fields,
	})
}

// Delete publishes a delete for an existing document.
func (p *Publisher) Delete(ctx context.Context, id uint64) error {
	return p.publish(ctx, ingestion.IngestEvent{Op: ingestion.OpDelete, DocumentID: id})
}

func (p *Publisher) publish(ctx context.Context, event ingestion.IngestEvent) error {
	event.EmittedAt = time.Now().UTC()
	if err := validator.ValidateIngestEvent(&event); err != nil {
		return err
	}
	if err := p.writer.Write(ctx, partitionKey, event); err != nil {
		return fmt.Errorf("publishing %s for document %d: %w", event.Op, event.DocumentID, err)
	}
	p.logger.Debug("event published", "op", event.Op, "doc_id", event.DocumentID)
	return nil
}
