// Package cmd provides the CLI commands for textsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/fixture"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// app carries state shared by every subcommand once the root pre-run hook
// has loaded the configuration.
type app struct {
	configPath  string
	logLevel    string
	fixturePath string
	lang        string
	cfg         *config.Config
}

// NewRootCmd creates the root command for the textsearch CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "textsearch",
		Short: "In-memory full-text search engine",
		Long: `textsearch indexes short text documents in memory and answers boolean
and phrase queries ranked by tf-idf.

Run 'textsearch run' to index the bundled fixture and run its queries, or
'textsearch serve' to start the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.fixturePath, "fixture", "", "Override fixture path")
	cmd.PersistentFlags().StringVar(&a.lang, "lang", "", "Override fixture language section")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newPublishCmd(a))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.fixturePath != "" {
		cfg.Fixture.Path = a.fixturePath
	}
	if a.lang != "" {
		cfg.Fixture.Lang = a.lang
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

func (a *app) newEngine(m *metrics.Metrics) (*indexer.Engine, error) {
	var opts []indexer.Option
	if m != nil {
		opts = append(opts, indexer.WithMetrics(m))
	}
	engine, err := indexer.NewEngine(a.cfg.Indexer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, nil
}

func (a *app) loadFixture() (*fixture.Fixture, error) {
	fx, err := fixture.Load(a.cfg.Fixture.Path, a.cfg.Fixture.Lang)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}
	slog.Info("fixture loaded",
		"path", a.cfg.Fixture.Path,
		"lang", fx.Lang,
		"queries", len(fx.Queries),
		"documents", len(fx.Data),
	)
	return fx, nil
}

// indexAll adds every text in order, so the n-th text gets ID n on a fresh
// engine.
func indexAll(ctx context.Context, engine *indexer.Engine, texts []string) error {
	for _, text := range texts {
		id, err := engine.AddDocument(ctx, text, nil)
		if err != nil {
			return fmt.Errorf("indexing %q: %w", text, err)
		}
		slog.Info("indexing document", "doc_id", id, "text", text)
	}
	slog.Info("documents indexed", "count", len(texts))
	return nil
}
