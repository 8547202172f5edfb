// Package executor evaluates parsed queries against the engine's index and
// materialises ranked hits from the document store.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Hit is one ranked document with its stored content.
type Hit struct {
	DocID  docstore.DocumentID `json:"doc_id"`
	Score  float64             `json:"score"`
	Text   string              `json:"text"`
	Fields map[string]string   `json:"fields,omitempty"`
}

type SearchResult struct {
	Query      string         `json:"query"`
	Parsed     string         `json:"parsed"`
	TotalHits  int            `json:"total_hits"`
	Results    []Hit          `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	Generation uint64         `json:"generation"`
}

type Executor struct {
	engine  *indexer.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(engine *indexer.Engine, m *metrics.Metrics) *Executor {
	return &Executor{
		engine:  engine,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Search parses query with the engine's tokenizer, evaluates and ranks it
// against one consistent view of the index and attaches stored text. limit
// <= 0 returns every match.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	tree, err := parser.Parse(query, e.engine.Tokenizer())
	if err != nil {
		e.record("syntax_error", 0)
		return nil, err
	}
	result, err := e.Execute(ctx, query, tree, limit)
	if err != nil {
		e.record("error", 0)
		return nil, err
	}
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.record(resultType, len(result.Results))
	e.logger.Info("query executed",
		"query", query,
		"parsed", result.Parsed,
		"total_hits", result.TotalHits,
		"results", len(result.Results),
		"duration", time.Since(start),
	)
	return result, nil
}

// Execute runs an already parsed tree.
func (e *Executor) Execute(ctx context.Context, query string, tree parser.Node, limit int) (*SearchResult, error) {
	var result *SearchResult
	// The read view stays open until hits are materialised, so every hit
	// refers to a document that is fully indexed and stored.
	err := e.engine.Index().View(func(r index.Reader) error {
		candidates, err := Evaluate(ctx, r, tree)
		if err != nil {
			return err
		}
		terms := parser.PositiveTerms(tree)
		ranked := ranker.Rank(r, candidates, terms, limit)
		hits := make([]Hit, 0, len(ranked))
		for _, sd := range ranked {
			doc, err := e.engine.Get(sd.DocID)
			if errors.Is(err, apperrors.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			hits = append(hits, Hit{
				DocID:  sd.DocID,
				Score:  sd.Score,
				Text:   doc.Text,
				Fields: doc.Fields,
			})
		}
		termStats := make(map[string]int, len(terms))
		for _, term := range terms {
			termStats[term] = r.DocumentFrequency(term)
		}
		result = &SearchResult{
			Query:      query,
			Parsed:     tree.String(),
			TotalHits:  len(candidates),
			Results:    hits,
			TermStats:  termStats,
			Generation: e.engine.Generation(),
		}
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("executing query %q: %w: %w", query, apperrors.ErrTimeout, err)
	}
	if err != nil {
		return nil, fmt.Errorf("executing query %q: %w", query, err)
	}
	return result, nil
}

func (e *Executor) record(resultType string, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if resultType != "syntax_error" && resultType != "error" {
		e.metrics.SearchResultsCount.Observe(float64(results))
	}
}
