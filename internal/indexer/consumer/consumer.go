// Package consumer applies ingest events from Kafka to the engine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// IndexConsumer feeds the engine from the ingest topic.
type IndexConsumer struct {
	reader *kafka.Reader[ingestion.IngestEvent]
	logger *slog.Logger
}

func New(cfg config.KafkaConfig, engine *indexer.Engine) *IndexConsumer {
	return &IndexConsumer{
		reader: kafka.NewReader(cfg, HandleEvent(engine)),
		logger: slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled or the reader gives up on an event.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.reader.Run(ctx)
}

// HandleEvent applies each ingest event to engine. Events that can never
// succeed are logged and acknowledged; anything else is returned and the
// reader retries that event in place, holding back the ones after it.
func HandleEvent(engine *indexer.Engine) kafka.Handler[ingestion.IngestEvent] {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, _ string, event ingestion.IngestEvent) error {
		if err := validator.ValidateIngestEvent(&event); err != nil {
			logger.Error("dropping invalid ingest event", "op", event.Op, "error", err)
			return nil
		}
		err := apply(ctx, engine, event, logger)
		if err != nil && apperrors.IsPermanent(err) {
			logger.Error("dropping ingest event",
				"op", event.Op,
				"doc_id", event.DocumentID,
				"error", err,
			)
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return resilience.Permanent(err)
		}
		return err
	}
}

func apply(ctx context.Context, engine *indexer.Engine, event ingestion.IngestEvent, logger *slog.Logger) error {
	switch event.Op {
	case ingestion.OpAdd:
		id, err := engine.AddDocument(ctx, event.Text, event.Fields)
		if err != nil {
			return fmt.Errorf("adding document: %w", err)
		}
		logger.Info("document indexed", "doc_id", id)
	case ingestion.OpReindex:
		id, err := engine.Reindex(ctx, docstore.DocumentID(event.DocumentID), event.Text, event.Fields)
		if err != nil {
			return err
		}
		logger.Info("document reindexed", "old_doc_id", event.DocumentID, "doc_id", id)
	case ingestion.OpDelete:
		if err := engine.DeleteDocument(ctx, docstore.DocumentID(event.DocumentID)); err != nil {
			return fmt.Errorf("deleting document %d: %w", event.DocumentID, err)
		}
	}
	return nil
}
