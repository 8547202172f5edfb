package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// failingTokenizer fails on any text containing "boom".
type failingTokenizer struct {
	inner tokenizer.Tokenizer
}

func (f failingTokenizer) Tokens(text string) iter.Seq2[tokenizer.Token, error] {
	return func(yield func(tokenizer.Token, error) bool) {
		for tok, err := range f.inner.Tokens(text) {
			if err == nil && tok.Term == "boom" {
				err = errors.New("analyzer exploded")
			}
			if !yield(tok, err) || err != nil {
				return
			}
		}
	}
}

func newTestEngine(t *testing.T, maxDocs int, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(config.IndexerConfig{Tokenizer: "simple", MaxDocuments: maxDocs}, opts...)
	require.NoError(t, err)
	return e
}

func TestAddDocumentIndexesTerms(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()

	id1, err := e.AddDocument(ctx, "the cat sat", nil)
	require.NoError(t, err)
	id2, err := e.AddDocument(ctx, "The Dog ran, the dog sat", map[string]string{"lang": "en"})
	require.NoError(t, err)

	assert.Equal(t, docstore.DocumentID(1), id1)
	assert.Equal(t, docstore.DocumentID(2), id2)
	assert.Equal(t, 2, e.Index().TotalDocuments())
	assert.Equal(t, 2, e.Index().DocumentFrequency("the"))

	dog := e.Index().Postings("dog")
	require.Len(t, dog, 1)
	assert.Equal(t, 2, dog[0].Frequency)
	assert.Equal(t, []int{1, 4}, dog[0].Positions)

	doc, err := e.Get(id2)
	require.NoError(t, err)
	assert.Equal(t, "en", doc.Fields["lang"])
	assert.Equal(t, uint64(2), e.Generation())
}

func TestAddDocumentRollsBackOnTokenizerFailure(t *testing.T) {
	e := newTestEngine(t, 0, WithTokenizer(failingTokenizer{inner: tokenizer.NewSimple(tokenizer.Options{})}))
	ctx := context.Background()

	_, err := e.AddDocument(ctx, "fine words", nil)
	require.NoError(t, err)
	before := e.Stats()

	_, err = e.AddDocument(ctx, "safe words then boom", nil)
	require.ErrorIs(t, err, apperrors.ErrTokenizerFailure)

	_, err = e.Get(2)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound, "store entry rolled back")
	assert.Equal(t, 0, e.Index().DocumentFrequency("safe"), "no partial postings")
	assert.Equal(t, 1, e.Index().DocumentFrequency("words"))
	assert.Equal(t, before.Documents, e.Stats().Documents)
	assert.Equal(t, before.Generation, e.Generation())

	id, err := e.AddDocument(ctx, "after failure", nil)
	require.NoError(t, err)
	assert.Equal(t, docstore.DocumentID(3), id, "rolled back id is not reused")
}

func TestAddDocumentStorageFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := newTestEngine(t, 1, WithMetrics(m))
	ctx := context.Background()

	_, err := e.AddDocument(ctx, "first", nil)
	require.NoError(t, err)

	_, err = e.AddDocument(ctx, "second", nil)
	require.ErrorIs(t, err, apperrors.ErrStorageFull)
	assert.Equal(t, 0, e.Index().DocumentFrequency("second"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestFailuresTotal.WithLabelValues("storage_full")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndexDocuments))
}

func TestAddDocumentCancelledContext(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.AddDocument(ctx, "never stored", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, docstore.DocumentID(1), e.Store().NextID())
}

func TestAddDocumentEmptyText(t *testing.T) {
	e := newTestEngine(t, 0)
	id, err := e.AddDocument(context.Background(), "  ,,  ", nil)
	require.NoError(t, err)

	assert.True(t, e.Index().Contains(id))
	assert.Equal(t, 1, e.Index().TotalDocuments())
	assert.Equal(t, 0, e.Index().Stats().Terms)
}

func TestReindexAssignsNewID(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()

	oldID, err := e.AddDocument(ctx, "quick brown fox", nil)
	require.NoError(t, err)

	newID, err := e.Reindex(ctx, oldID, "slow brown bear", nil)
	require.NoError(t, err)

	assert.Greater(t, newID, oldID)
	_, err = e.Get(oldID)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, 0, e.Index().DocumentFrequency("fox"))
	assert.Equal(t, []docstore.DocumentID{newID}, e.Index().Postings("brown").DocIDs())
	assert.Equal(t, 1, e.Index().TotalDocuments())
	assert.Equal(t, 1, e.Stats().Tombstones)
}

func TestReindexUnknownDocument(t *testing.T) {
	e := newTestEngine(t, 0)
	_, err := e.Reindex(context.Background(), 42, "text", nil)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestDeleteDocumentIsIdempotent(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	id, err := e.AddDocument(ctx, "gone soon", nil)
	require.NoError(t, err)

	require.NoError(t, e.DeleteDocument(ctx, id))
	require.NoError(t, e.DeleteDocument(ctx, id))
	require.NoError(t, e.DeleteDocument(ctx, 99))

	_, err = e.Get(id)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, index.Stats{}, e.Index().Stats())
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src := newTestEngine(t, 0)
	for _, text := range []string{"alpha beta", "beta gamma", "gamma delta"} {
		_, err := src.AddDocument(ctx, text, nil)
		require.NoError(t, err)
	}
	require.NoError(t, src.DeleteDocument(ctx, 2))

	st := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, src.SaveSnapshot(ctx, st, "test"))

	dst := newTestEngine(t, 0)
	ok, err := dst.LoadSnapshot(ctx, st, "test")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, src.Index().Stats(), dst.Index().Stats())
	assert.Equal(t, src.Index().Postings("gamma"), dst.Index().Postings("gamma"))
	_, err = dst.Get(2)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	id, err := dst.AddDocument(ctx, "epsilon", nil)
	require.NoError(t, err)
	assert.Equal(t, docstore.DocumentID(4), id, "ids continue after restore")
}

func TestLoadSnapshotMissing(t *testing.T) {
	e := newTestEngine(t, 0)
	ok, err := e.LoadSnapshot(context.Background(), snapshot.NewFileStore(t.TempDir()), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreRejectsInconsistentImage(t *testing.T) {
	e := newTestEngine(t, 0)
	_, err := e.AddDocument(context.Background(), "kept", nil)
	require.NoError(t, err)

	err = e.Restore(&snapshot.Image{
		NextID:    2,
		Documents: []docstore.Document{{ID: 5, Text: "beyond next id"}},
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, e.Index().DocumentFrequency("kept"), "state untouched")
}

func TestQueriesDuringIngestionSeeWholeDocuments(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	const docs = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < docs; i++ {
			_, err := e.AddDocument(ctx, fmt.Sprintf("start middle%d end", i), nil)
			assert.NoError(t, err)
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < docs; i++ {
				_ = e.Index().View(func(r index.Reader) error {
					start := r.Postings("start").DocIDs()
					end := r.Postings("end").DocIDs()
					assert.Equal(t, start, end)
					for _, id := range start {
						assert.True(t, e.Store().Exists(id))
					}
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, docs, e.Index().TotalDocuments())
}

func TestAggregate(t *testing.T) {
	tokens, err := tokenizer.Collect(tokenizer.NewSimple(tokenizer.Options{}), strings.Repeat("a b ", 3))
	require.NoError(t, err)

	got := aggregate(tokens)
	assert.Equal(t, []index.TermPostings{
		{Term: "a", Frequency: 3, Positions: []int{0, 2, 4}},
		{Term: "b", Frequency: 3, Positions: []int{1, 3, 5}},
	}, got)
}
