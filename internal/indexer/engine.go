package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Engine is the index writer. It owns one document store and one inverted
// index; at most one write runs at a time.
type Engine struct {
	writeMu    sync.Mutex
	store      *docstore.Store
	index      *index.InvertedIndex
	tokenizer  tokenizer.Tokenizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	generation atomic.Uint64
}

// Option customises an Engine.
type Option func(*Engine)

// WithTokenizer overrides the tokenizer selected by the config.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(e *Engine) { e.tokenizer = t }
}

// WithMetrics records ingestion metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  docstore.New(cfg.MaxDocuments),
		index:  index.New(),
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tokenizer == nil {
		tok, err := tokenizer.New(cfg.Tokenizer, tokenizer.Options{
			StopWords: cfg.StopWords,
			Stem:      cfg.Stem,
		})
		if err != nil {
			return nil, fmt.Errorf("creating tokenizer: %w", err)
		}
		e.tokenizer = tok
	}
	return e, nil
}

// AddDocument stores text and fields, tokenizes the text and publishes all
// of its postings at once. On failure nothing stays visible.
func (e *Engine) AddDocument(ctx context.Context, text string, fields map[string]string) (docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.addLocked(text, fields)
}

// Reindex replaces a document's content. The old identifier is retired and
// the document is ingested again under a new one.
func (e *Engine) Reindex(ctx context.Context, id docstore.DocumentID, text string, fields map[string]string) (docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if !e.store.Exists(id) {
		return 0, fmt.Errorf("reindexing document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	e.removeLocked(id)
	newID, err := e.addLocked(text, fields)
	if err != nil {
		return 0, fmt.Errorf("reindexing document %d: %w", id, err)
	}
	e.logger.Info("document reindexed", "old_doc_id", id, "doc_id", newID)
	return newID, nil
}

// DeleteDocument removes a document from the index and tombstones it.
// Deleting an unknown or already deleted document is a no-op.
func (e *Engine) DeleteDocument(ctx context.Context, id docstore.DocumentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if !e.store.Exists(id) {
		return nil
	}
	e.removeLocked(id)
	e.logger.Info("document deleted", "doc_id", id)
	return nil
}

// Get returns the stored document.
func (e *Engine) Get(id docstore.DocumentID) (docstore.Document, error) {
	return e.store.Get(id)
}

func (e *Engine) Index() *index.InvertedIndex {
	return e.index
}

func (e *Engine) Store() *docstore.Store {
	return e.store
}

func (e *Engine) Tokenizer() tokenizer.Tokenizer {
	return e.tokenizer
}

// Generation increases after every successful write. Caches key on it.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Stats describes the current corpus.
type Stats struct {
	Documents  int    `json:"documents"`
	Tombstones int    `json:"tombstones"`
	Terms      int    `json:"terms"`
	Postings   int    `json:"postings"`
	NextID     uint64 `json:"next_id"`
	Generation uint64 `json:"generation"`
}

func (e *Engine) Stats() Stats {
	is := e.index.Stats()
	return Stats{
		Documents:  is.Documents,
		Tombstones: e.store.Tombstones(),
		Terms:      is.Terms,
		Postings:   is.Postings,
		NextID:     uint64(e.store.NextID()),
		Generation: e.Generation(),
	}
}

// Snapshot captures the store and index as one consistent image.
func (e *Engine) Snapshot() *snapshot.Image {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	terms, _ := e.index.Snapshot()
	return &snapshot.Image{
		NextID:    e.store.NextID(),
		Documents: e.store.Snapshot(),
		Terms:     terms,
		CreatedAt: time.Now().UTC(),
	}
}

// Restore replaces the engine's state with img. Postings are restored as
// stored; the text is not re-tokenized.
func (e *Engine) Restore(img *snapshot.Image) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	live := make([]docstore.DocumentID, len(img.Documents))
	for i, doc := range img.Documents {
		live[i] = doc.ID
	}
	// Validate the documents before touching either structure.
	if err := docstore.New(0).Restore(img.Documents, img.NextID); err != nil {
		return fmt.Errorf("restoring document store: %w", err)
	}
	if err := e.index.Restore(img.Terms, live); err != nil {
		return fmt.Errorf("restoring index: %w", err)
	}
	if err := e.store.Restore(img.Documents, img.NextID); err != nil {
		return fmt.Errorf("restoring document store: %w", err)
	}
	e.generation.Add(1)
	e.updateGauges()
	e.logger.Info("engine restored",
		"documents", len(img.Documents),
		"terms", len(img.Terms),
		"next_id", img.NextID,
	)
	return nil
}

// SaveSnapshot writes the current image to st under name.
func (e *Engine) SaveSnapshot(ctx context.Context, st snapshot.Store, name string) error {
	img := e.Snapshot()
	err := st.Save(ctx, name, img)
	e.recordSnapshot("save", st.Backend(), err)
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	e.logger.Info("snapshot saved",
		"backend", st.Backend(),
		"name", name,
		"documents", len(img.Documents),
	)
	return nil
}

// LoadSnapshot restores from st. A missing snapshot is not an error and
// reports false.
func (e *Engine) LoadSnapshot(ctx context.Context, st snapshot.Store, name string) (bool, error) {
	img, err := st.Load(ctx, name)
	if errors.Is(err, snapshot.ErrNotFound) {
		e.logger.Info("no snapshot to restore", "backend", st.Backend(), "name", name)
		return false, nil
	}
	e.recordSnapshot("load", st.Backend(), err)
	if err != nil {
		return false, fmt.Errorf("loading snapshot %q: %w", name, err)
	}
	if err := e.Restore(img); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) addLocked(text string, fields map[string]string) (docstore.DocumentID, error) {
	id, err := e.store.Put(text, fields)
	if err != nil {
		e.recordFailure("storage_full")
		return 0, fmt.Errorf("storing document: %w", err)
	}
	tokens, err := tokenizer.Collect(e.tokenizer, text)
	if err != nil {
		e.store.Delete(id)
		e.recordFailure("tokenizer")
		return 0, fmt.Errorf("tokenizing document %d: %w", id, err)
	}
	terms := aggregate(tokens)
	if err := e.index.Index(id, terms); err != nil {
		e.store.Delete(id)
		e.recordFailure("index")
		return 0, fmt.Errorf("indexing document %d: %w", id, err)
	}
	e.generation.Add(1)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.updateGauges()
	e.logger.Debug("document indexed",
		"doc_id", id,
		"token_count", len(tokens),
		"distinct_terms", len(terms),
	)
	return id, nil
}

func (e *Engine) removeLocked(id docstore.DocumentID) {
	removed := e.index.RemovePostings(id)
	e.store.Delete(id)
	e.generation.Add(1)
	if e.metrics != nil {
		e.metrics.DocsDeletedTotal.Inc()
	}
	e.updateGauges()
	e.logger.Debug("postings removed", "doc_id", id, "postings", removed)
}

// aggregate folds a token stream into one TermPostings per distinct term,
// ordered by term.
func aggregate(tokens []tokenizer.Token) []index.TermPostings {
	byTerm := make(map[string]*index.TermPostings)
	for _, tok := range tokens {
		tp, exists := byTerm[tok.Term]
		if !exists {
			tp = &index.TermPostings{
				Term:      tok.Term,
				Positions: make([]int, 0, 4),
			}
			byTerm[tok.Term] = tp
		}
		tp.Frequency++
		tp.Positions = append(tp.Positions, tok.Position)
	}
	result := make([]index.TermPostings, 0, len(byTerm))
	for _, tp := range byTerm {
		result = append(result, *tp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Term < result[j].Term
	})
	return result
}

func (e *Engine) recordFailure(reason string) {
	if e.metrics != nil {
		e.metrics.IngestFailuresTotal.WithLabelValues(reason).Inc()
	}
}

func (e *Engine) recordSnapshot(op, backend string, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.SnapshotsTotal.WithLabelValues(op, backend, status).Inc()
}

func (e *Engine) updateGauges() {
	if e.metrics == nil {
		return
	}
	stats := e.index.Stats()
	e.metrics.IndexDocuments.Set(float64(stats.Documents))
	e.metrics.IndexTerms.Set(float64(stats.Terms))
}
