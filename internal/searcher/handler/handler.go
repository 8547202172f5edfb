// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
}

type Handler struct {
	searcher   Searcher
	cache      *cache.QueryCache
	generation func() uint64
	cfg        config.SearchConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Handler. queryCache and m may be nil; generation must be set
// when queryCache is.
func New(s Searcher, queryCache *cache.QueryCache, generation func() uint64, cfg config.SearchConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher:   s,
		cache:      queryCache,
		generation: generation,
		cfg:        cfg,
		metrics:    m,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && (limit <= 0 || limit > h.cfg.MaxResults) {
		limit = h.cfg.MaxResults
	}

	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	var result *executor.SearchResult
	var err error
	cacheStatus := "disabled"
	if h.cache != nil {
		var hit bool
		result, hit, err = h.cache.GetOrCompute(ctx, h.generation(), query, limit, func(sctx context.Context) (*executor.SearchResult, error) {
			return h.searcher.Search(sctx, query, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.searcher.Search(ctx, query, limit)
	}
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":    syntaxErr.Msg,
				"position": syntaxErr.Pos,
			})
			return
		}
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", query, "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
