package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the fixture data as ingest events to Kafka",
		Long: `Publish one add event per fixture document to the configured Kafka topic.
A running 'textsearch serve' with the same brokers indexes them in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("no kafka brokers configured")
			}
			fx, err := a.loadFixture()
			if err != nil {
				return err
			}

			writer := kafka.NewWriter[ingestion.IngestEvent](a.cfg.Kafka)
			defer writer.Close()

			fields := map[string]string{"source": source, "lang": fx.Lang}
			n, err := publisher.New(writer).Add(cmd.Context(), fx.Data, fields)
			if err != nil {
				return fmt.Errorf("publishing fixture: %w", err)
			}
			slog.Info("fixture published", "topic", a.cfg.Kafka.Topic, "events", n)
			fmt.Fprintf(cmd.OutOrStdout(), "published %d events to %s\n", n, a.cfg.Kafka.Topic)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "fixture", "Value of the 'source' field attached to each document")

	return cmd
}
