package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/filmgraph/internal/graph"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ErrEmptyCatalogue reports a graph without a single item.
var ErrEmptyCatalogue = errors.New("review graph has no items")

// GraphHealthService reports unhealthy when the review graph is empty or,
// if a client is configured, when the Neo4j mirror is unreachable.
type GraphHealthService struct {
	Graph  *reviewgraph.Graph
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Graph != nil && s.Graph.Stats().Items == 0 {
		return ErrEmptyCatalogue
	}
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	return nil
}
