// Package app assembles the review graph, its persistence and the
// recommendation service from configuration. The commands under cmd/ share
// it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanshika/filmgraph/internal/config"
	"github.com/vanshika/filmgraph/internal/dataset"
	"github.com/vanshika/filmgraph/internal/graph"
	"github.com/vanshika/filmgraph/internal/metrics"
	"github.com/vanshika/filmgraph/internal/repository"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
	"github.com/vanshika/filmgraph/internal/service"
	"github.com/vanshika/filmgraph/internal/snapshot"
)

// App holds the wired components. Client and Repository are nil when no
// Neo4j URI is configured. Snapshots is nil when persistence is disabled.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Graph      *reviewgraph.Graph
	Source     snapshot.Source
	Dataset    *dataset.Loader
	Client     graph.Client
	Repository *repository.Repository
	Snapshots  snapshot.Store
	Service    *service.RecommendationService

	closers []func(context.Context) error
}

// Options overrides parts of the wiring.
type Options struct {
	// Client replaces the Neo4j client built from cfg.Graph.
	Client graph.Client
}

// Open loads the review graph, restoring the snapshot when one is usable,
// and builds the service around it. Close releases what Open acquired.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Dataset: dataset.NewLoader(dataset.Options{
			Dir:      cfg.Dataset.Dir,
			MinScore: cfg.Dataset.MinScore,
			Workers:  cfg.Dataset.Workers,
		}, logger),
	}

	client := opts.Client
	if client == nil && cfg.Graph.Enabled() {
		var err error
		client, err = OpenGraphClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	if client != nil {
		a.Client = client
		a.closers = append(a.closers, client.Close)
		a.Repository = repository.New(client)
		if err := a.Repository.EnsureSchema(ctx); err != nil {
			logger.Warn("neo4j schema setup failed", "error", err)
		}
	}

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Snapshots = store
	if closeStore != nil {
		a.closers = append(a.closers, func(context.Context) error { return closeStore() })
	}

	build, err := a.buildFunc()
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	g, src, err := snapshot.NewLoader(store, build, logger).LoadWithSource(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("load review graph: %w", err)
	}
	a.Graph, a.Source = g, src
	metrics.RecordGraphLoad(string(src), g.Stats())

	deps := service.Dependencies{Graph: g, Logger: logger}
	if cfg.Dataset.Source == config.SourceCSV {
		deps.Files = a.Dataset
	}
	if a.Repository != nil {
		deps.Repository = a.Repository
	}
	if store != nil {
		deps.Snapshots = store
	}
	a.Service = service.NewRecommendationService(deps, service.Options{
		Workers:  cfg.Recommend.Workers,
		MaxPaths: cfg.Recommend.MaxPaths,
		PageSize: cfg.Recommend.PageSize,
		MinScore: cfg.Dataset.MinScore,
	})
	return a, nil
}

func (a *App) buildFunc() (snapshot.BuildFunc, error) {
	switch a.Config.Dataset.Source {
	case config.SourceNeo4j:
		if a.Repository == nil {
			return nil, graph.ErrMissingURI
		}
		minScore := a.Dataset.MinScore()
		return func(ctx context.Context) (*reviewgraph.Graph, error) {
			return a.Repository.LoadGraph(ctx, minScore)
		}, nil
	default:
		return func(ctx context.Context) (*reviewgraph.Graph, error) {
			g, _, err := a.Dataset.Load(ctx)
			return g, err
		}, nil
	}
}

// Close releases clients and stores in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenGraphClient connects to Neo4j, verifies connectivity and wraps the
// client in a circuit breaker.
func OpenGraphClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (graph.Client, error) {
	if !cfg.Graph.Enabled() {
		return nil, graph.ErrMissingURI
	}
	client, err := graph.NewNeo4jClient(graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create graph client: %w", err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return graph.NewBreakerClient(client, graph.BreakerOptions{}, logger), nil
}

// OpenStore returns the configured snapshot store and, for stores that hold
// resources, a function releasing them. The none backend yields a nil store.
func OpenStore(cfg config.Config) (snapshot.Store, func() error, error) {
	switch cfg.Snapshot.Backend {
	case config.SnapshotNone:
		return nil, nil, nil
	case config.SnapshotBadger:
		store, err := snapshot.OpenBadger(cfg.Snapshot.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return snapshot.NewFileStore(cfg.Snapshot.Path), nil, nil
	}
}
