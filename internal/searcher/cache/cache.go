// Package cache memoises search results. Keys include the engine generation,
// so any write makes earlier entries unreachable without explicit
// invalidation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

const keyPrefix = "search:"

type QueryCache struct {
	backend Backend
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache on backend. m may be nil.
func New(backend Backend, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache", "backend", backend.Name()),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, query string, limit int) (*executor.SearchResult, bool) {
	key := buildKey(generation, query, limit)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !ok {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, query string, limit int, result *executor.SearchResult) {
	key := buildKey(generation, query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs computeFn once per key, even
// when many callers miss at the same time. The bool reports a cache hit.
//
// The shared computation does not inherit the first caller's cancellation,
// only its deadline, so one client going away does not fail the others.
// Each caller still stops waiting when its own ctx ends.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	limit int,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, generation, query, limit); ok {
		return result, true, nil
	}
	key := buildKey(generation, query, limit)
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := detach(ctx)
		defer cancel()
		result, err := computeFn(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, generation, query, limit, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	}
}

// detach drops ctx's cancellation but keeps its values and deadline.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	shared := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(shared, deadline)
	}
	return shared, func() {}
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.Purge(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(generation uint64, query string, limit int) string {
	raw := fmt.Sprintf("%d|%s|limit=%d", generation, normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery collapses runs of whitespace, which never changes the parse.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
