package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/snapshot"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one query against a snapshot or the fixture",
		Long: `Run a single query. The corpus is restored from the configured snapshot
backend when a snapshot exists, otherwise the fixture data is indexed.

Examples:
  textsearch search rAma
  textsearch search '"rAma gacCati" OR sItA' --limit 5
  textsearch search 'vana NOT rAma' --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown format %q", opts.format)
			}
			query := strings.Join(args, " ")
			ctx := cmd.Context()

			engine, err := a.newEngine(nil)
			if err != nil {
				return err
			}
			if err := a.populate(ctx, engine); err != nil {
				return err
			}

			result, err := executor.New(engine, nil).Search(ctx, query, opts.limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintf(out, "%s: %d hits\n", result.Parsed, result.TotalHits)
			for _, hit := range result.Results {
				fmt.Fprintf(out, ". scored %.2f on doc[%d] '%s'\n", hit.Score, hit.DocID, hit.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results (0 for all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// populate restores engine from the snapshot store when one is configured and
// holds a snapshot, and indexes the fixture otherwise.
func (a *app) populate(ctx context.Context, engine *indexer.Engine) error {
	if a.cfg.Snapshot.Backend != "" {
		st, err := snapshot.Open(a.cfg)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer st.Close()
		restored, err := engine.LoadSnapshot(ctx, st, a.cfg.Snapshot.Name)
		if err != nil {
			return err
		}
		if restored {
			return nil
		}
	}
	fx, err := a.loadFixture()
	if err != nil {
		return err
	}
	return indexAll(ctx, engine, fx.Data)
}
