package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/snapshot"
)

const runLimit = 1000

func newRunCmd(a *app) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Index the fixture data and run every fixture query",
		Long: `Load the fixture, print its queries and documents, index every document
(IDs start at 1, in file order) and run each query with a limit of 1000.

Queries that fail to parse are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fx, err := a.loadFixture()
			if err != nil {
				return err
			}
			for i, q := range fx.Queries {
				fmt.Fprintf(out, "Test[%d]: %s\n", i+1, q)
			}
			for _, d := range fx.Data {
				fmt.Fprintf(out, "Data: %s\n", d)
			}

			engine, err := a.newEngine(nil)
			if err != nil {
				return err
			}
			if err := indexAll(ctx, engine, fx.Data); err != nil {
				return err
			}

			exec := executor.New(engine, nil)
			failed := 0
			for _, q := range fx.Queries {
				fmt.Fprintln(out, "----------------------------------------")
				result, err := exec.Search(ctx, q, runLimit)
				var syntaxErr *parser.SyntaxError
				if errors.As(err, &syntaxErr) {
					failed++
					fmt.Fprintf(out, "Query '%s' rejected: %v\n", q, err)
					continue
				}
				if err != nil {
					return fmt.Errorf("searching %q: %w", q, err)
				}
				fmt.Fprintf(out, "Searching for phrase '%s', query looks like: %s\n", q, result.Parsed)
				for _, hit := range result.Results {
					fmt.Fprintf(out, ". scored %.2f on doc[%d] '%s'\n", hit.Score, hit.DocID, hit.Text)
				}
			}
			if failed > 0 {
				slog.Warn("some queries were rejected", "rejected", failed, "total", len(fx.Queries))
			}

			if save && a.cfg.Snapshot.Backend != "" {
				st, err := snapshot.Open(a.cfg)
				if err != nil {
					return fmt.Errorf("failed to open snapshot store: %w", err)
				}
				defer st.Close()
				if err := engine.SaveSnapshot(ctx, st, a.cfg.Snapshot.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", true, "Save a snapshot when a snapshot backend is configured")

	return cmd
}
