package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// capacityWarnRatio is the document-store fill level at which readiness
// reports degraded.
const capacityWarnRatio = 0.9

func newServeCmd(a *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP search and document API",
		Long: `Start the HTTP API. On start the engine is restored from the configured
snapshot backend; with --seed an empty engine is filled from the fixture.

When Kafka brokers are configured, ingest events from the topic are applied
in order. Snapshots are saved periodically while the corpus changes and once
more on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, seed)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Index the fixture data when no snapshot was restored")

	return cmd
}

func (a *app) serve(ctx context.Context, seed bool) error {
	cfg := a.cfg
	m := metrics.New(prometheus.DefaultRegisterer)

	engine, err := a.newEngine(m)
	if err != nil {
		return err
	}

	var st snapshot.Store
	if cfg.Snapshot.Backend != "" {
		st, err = snapshot.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer st.Close()
		if _, err := engine.LoadSnapshot(ctx, st, cfg.Snapshot.Name); err != nil {
			return err
		}
	}
	if seed && engine.Stats().Documents == 0 {
		fx, err := a.loadFixture()
		if err != nil {
			return err
		}
		if err := indexAll(ctx, engine, fx.Data); err != nil {
			return err
		}
	}

	checker := health.NewChecker()
	checker.Register("document_store", health.ThresholdCheck(func() (int, int) {
		return engine.Store().Len(), cfg.Indexer.MaxDocuments
	}, capacityWarnRatio))

	if pinger, ok := st.(interface{ Ping(context.Context) error }); ok {
		checker.Register("snapshot_store", health.PingCheck(pinger.Ping))
	}

	queryCache, redisClient := newQueryCache(cfg, m)
	if redisClient != nil {
		defer redisClient.Close()
		checker.Register("redis", health.PingCheck(redisClient.Ping))
	}

	router := newRouter(engine, queryCache, cfg, m, checker)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 && cfg.Metrics.Port != cfg.Server.Port {
		ms := metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		g.Go(func() error {
			return ms.Run(gctx)
		})
	}

	g.Go(func() error {
		slog.Info("textsearch listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		ic := consumer.New(cfg.Kafka, engine)
		g.Go(func() error {
			return ic.Start(gctx)
		})
	}

	if st != nil && cfg.Snapshot.Interval > 0 {
		g.Go(func() error {
			runSnapshots(gctx, engine, st, cfg.Snapshot.Name, cfg.Snapshot.Interval)
			return nil
		})
	}

	err = g.Wait()

	if st != nil {
		finalCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if saveErr := saveSnapshot(finalCtx, engine, st, cfg.Snapshot.Name); saveErr != nil {
			slog.Error("final snapshot failed", "error", saveErr)
			err = errors.Join(err, saveErr)
		}
	}

	slog.Info("textsearch stopped")
	return err
}

func newRouter(engine *indexer.Engine, queryCache *cache.QueryCache, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) http.Handler {
	mux := http.NewServeMux()

	searchhandler.New(executor.New(engine, m), queryCache, engine.Generation, cfg.Search, m).Register(mux)
	ingesthandler.New(engine).Register(mux)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.HandlerFor(prometheus.DefaultGatherer))
	}

	// Metrics sits inside Timeout so it sees the request the mux annotates
	// with its matched pattern.
	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Timeout(cfg.Server.WriteTimeout),
		middleware.Metrics(m),
	)
}

// newQueryCache prefers Redis when an address is configured and reachable,
// and falls back to the in-process LRU.
func newQueryCache(cfg *config.Config, m *metrics.Metrics) (*cache.QueryCache, *pkgredis.Client) {
	if !cfg.Cache.Enabled {
		slog.Info("search cache disabled")
		return nil, nil
	}
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err == nil {
			slog.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
			return cache.New(cache.NewRedisBackend(client, cfg.Redis.CacheTTL), m), client
		}
		slog.Warn("redis unavailable, using local search cache", "error", err)
	}
	slog.Info("search cache enabled", "backend", "local", "size", cfg.Cache.LocalSize)
	return cache.New(cache.NewLocalBackend(cfg.Cache.LocalSize), m), nil
}

// runSnapshots saves a snapshot every interval while the engine generation
// keeps moving.
func runSnapshots(ctx context.Context, engine *indexer.Engine, st snapshot.Store, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	saved := engine.Generation()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gen := engine.Generation()
			if gen == saved {
				continue
			}
			if err := saveSnapshot(ctx, engine, st, name); err != nil {
				slog.Error("periodic snapshot failed", "error", err)
				continue
			}
			saved = gen
		}
	}
}

func saveSnapshot(ctx context.Context, engine *indexer.Engine, st snapshot.Store, name string) error {
	return resilience.Retry(ctx, "snapshot-save", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}, func() error {
		return engine.SaveSnapshot(ctx, st, name)
	})
}
