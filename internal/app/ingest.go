package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanshika/filmgraph/internal/config"
	"github.com/vanshika/filmgraph/internal/dataset"
	"github.com/vanshika/filmgraph/internal/graph"
	"github.com/vanshika/filmgraph/internal/metrics"
	"github.com/vanshika/filmgraph/internal/repository"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
	"github.com/vanshika/filmgraph/internal/snapshot"
)

// IngestOptions selects what an ingest run writes.
type IngestOptions struct {
	// Snapshot saves the rebuilt graph to the configured store.
	Snapshot bool
	// Client, when set, receives every reviewer, item and review.
	Client graph.Client
}

// IngestReport summarises an ingest run.
type IngestReport struct {
	Dataset  dataset.Stats
	Graph    reviewgraph.Stats
	Saved    bool
	Pushed   bool
	Mirrored int64
	Duration time.Duration
}

// Ingest rebuilds the review graph from the CSV dataset regardless of any
// existing snapshot, then saves it and mirrors it to Neo4j as requested.
func Ingest(ctx context.Context, cfg config.Config, logger *slog.Logger, opts IngestOptions) (IngestReport, error) {
	start := time.Now()
	logger = logger.With("component", "ingest")

	loader := dataset.NewLoader(dataset.Options{
		Dir:      cfg.Dataset.Dir,
		MinScore: cfg.Dataset.MinScore,
		Workers:  cfg.Dataset.Workers,
	}, logger)
	g, stats, err := loader.Load(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	report := IngestReport{Dataset: stats, Graph: g.Stats()}
	metrics.RecordGraphLoad(string(snapshot.SourceDataset), report.Graph)

	if opts.Snapshot {
		store, closeStore, err := OpenStore(cfg)
		if err != nil {
			return report, err
		}
		if store != nil {
			err = store.Save(ctx, g)
			if closeStore != nil {
				if cerr := closeStore(); cerr != nil && err == nil {
					err = cerr
				}
			}
			if err != nil {
				return report, fmt.Errorf("save snapshot: %w", err)
			}
			report.Saved = true
			logger.Info("snapshot saved", "backend", cfg.Snapshot.Backend, "path", cfg.Snapshot.Path)
		}
	}

	if opts.Client != nil {
		repo := repository.New(opts.Client)
		if err := repo.EnsureSchema(ctx); err != nil {
			return report, err
		}
		if err := repo.UpsertGraph(ctx, g); err != nil {
			return report, fmt.Errorf("push graph: %w", err)
		}
		report.Pushed = true

		listed, err := repo.ListItems(ctx, repository.ListItemsOptions{Limit: 1})
		if err != nil {
			logger.Warn("neo4j catalogue count failed", "error", err)
		} else {
			report.Mirrored = listed.Total
		}
		logger.Info("graph pushed to neo4j", "items", report.Graph.Items, "mirrored_items", report.Mirrored)
	}

	report.Duration = time.Since(start)
	logger.Info("ingestion complete",
		"files", stats.Files,
		"reviewers", report.Graph.Reviewers,
		"items", report.Graph.Items,
		"edges", report.Graph.Edges,
		"duration", report.Duration.String(),
	)
	return report, nil
}
