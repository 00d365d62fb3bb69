package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanshika/filmgraph/internal/app"
	"github.com/vanshika/filmgraph/internal/config"
	"github.com/vanshika/filmgraph/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		datasetDir   string
		workers      int
		saveSnapshot bool
		pushNeo4j    bool
	)

	cmd := &cobra.Command{
		Use:          "filmgraph-ingest",
		Short:        "Rebuild the review graph from the CSV dataset",
		Long:         "Reads every per-film review file, saves a fresh graph snapshot and optionally mirrors the graph into Neo4j.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				return err
			}
			if cmd.Flags().Changed("dataset-dir") {
				cfg.Dataset.Dir = datasetDir
			}
			if cmd.Flags().Changed("workers") {
				cfg.Dataset.Workers = workers
			}
			return run(cmd.Context(), cfg, saveSnapshot, pushNeo4j)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file")
	cmd.Flags().StringVar(&datasetDir, "dataset-dir", "", "Directory of per-film review files (overrides DATASET_DIR)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Number of concurrent file readers")
	cmd.Flags().BoolVar(&saveSnapshot, "snapshot", true, "Save the rebuilt graph to the configured snapshot store")
	cmd.Flags().BoolVar(&pushNeo4j, "neo4j", false, "Mirror the graph into Neo4j (requires GRAPH_URI)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, saveSnapshot, pushNeo4j bool) error {
	logger := logging.New(cfg.Logging).With("component", "ingest")

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.IngestOptions{Snapshot: saveSnapshot}
	if pushNeo4j {
		client, err := app.OpenGraphClient(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		opts.Client = client
	}

	if _, err := app.Ingest(ctx, cfg, logger, opts); err != nil {
		logger.Error("ingestion failed", "error", err)
		return err
	}
	return nil
}
