package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// BuildFunc builds a graph from source data.
type BuildFunc func(ctx context.Context) (*reviewgraph.Graph, error)

// Source reports where a loaded graph came from.
type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceDataset  Source = "dataset"
)

// Loader returns the stored snapshot when there is a usable one and
// otherwise builds a fresh graph and stores it.
type Loader struct {
	store  Store
	build  BuildFunc
	logger *slog.Logger
}

// NewLoader constructs a Loader. store may be nil, in which case every load
// builds.
func NewLoader(store Store, build BuildFunc, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, build: build, logger: logger.With("component", "snapshot")}
}

// Load implements Provider.
func (l *Loader) Load(ctx context.Context) (*reviewgraph.Graph, error) {
	g, _, err := l.LoadWithSource(ctx)
	return g, err
}

// LoadWithSource is Load that also reports whether the graph was restored or
// rebuilt. A missing or corrupt snapshot triggers a rebuild; any other store
// error is returned. Failing to save the rebuilt graph is logged and does
// not fail the load.
func (l *Loader) LoadWithSource(ctx context.Context) (*reviewgraph.Graph, Source, error) {
	if l.store != nil {
		start := time.Now()
		g, err := l.store.Load(ctx)
		switch {
		case err == nil:
			s := g.Stats()
			l.logger.Info("snapshot restored",
				"reviewers", s.Reviewers,
				"items", s.Items,
				"edges", s.Edges,
				"duration", time.Since(start),
			)
			return g, SourceSnapshot, nil
		case errors.Is(err, ErrNotFound):
			l.logger.Info("no snapshot, rebuilding from dataset")
		case errors.Is(err, ErrCorrupt):
			l.logger.Warn("snapshot unusable, rebuilding from dataset", "error", err)
		default:
			return nil, "", err
		}
	}

	g, err := l.build(ctx)
	if err != nil {
		return nil, "", err
	}

	if l.store != nil {
		if err := l.store.Save(ctx, g); err != nil {
			l.logger.Warn("snapshot save failed", "error", err)
		}
	}
	return g, SourceDataset, nil
}
