package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func TestHandleEventAppliesEventsInOrder(t *testing.T) {
	engine, err := indexer.NewEngine(config.IndexerConfig{})
	require.NoError(t, err)
	handle := HandleEvent(engine)
	ctx := context.Background()

	events := []ingestion.IngestEvent{
		{Op: ingestion.OpAdd, Text: "the cat sat"},
		{Op: ingestion.OpAdd, Text: "the dog ran"},
		{Op: ingestion.OpReindex, DocumentID: 1, Text: "the cat slept"},
		{Op: ingestion.OpDelete, DocumentID: 2},
	}
	for _, e := range events {
		require.NoError(t, handle(ctx, "ingest", e))
	}

	_, err = engine.Get(1)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	_, err = engine.Get(2)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	doc, err := engine.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "the cat slept", doc.Text)
	assert.Equal(t, []docstore.DocumentID{3}, engine.Index().Documents())
}

func TestHandleEventAcknowledgesPoisonMessages(t *testing.T) {
	engine, err := indexer.NewEngine(config.IndexerConfig{})
	require.NoError(t, err)
	handle := HandleEvent(engine)
	ctx := context.Background()

	assert.NoError(t, handle(ctx, "ingest", ingestion.IngestEvent{Op: "merge"}))
	assert.NoError(t, handle(ctx, "ingest", ingestion.IngestEvent{Op: ingestion.OpReindex, DocumentID: 99, Text: "x"}))
	assert.Equal(t, 0, engine.Index().TotalDocuments())
}

func TestHandleEventReturnsStorageFull(t *testing.T) {
	engine, err := indexer.NewEngine(config.IndexerConfig{MaxDocuments: 1})
	require.NoError(t, err)
	handle := HandleEvent(engine)
	ctx := context.Background()

	require.NoError(t, handle(ctx, "ingest", ingestion.IngestEvent{Op: ingestion.OpAdd, Text: "one"}))
	err = handle(ctx, "ingest", ingestion.IngestEvent{Op: ingestion.OpAdd, Text: "two"})
	assert.ErrorIs(t, err, apperrors.ErrStorageFull, "returned so the reader retries it in place")
}
