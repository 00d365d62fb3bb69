// Package graph is the thin Bolt client layer used to mirror reviews into a
// Neo4j database.
package graph

import (
	"context"
	"errors"
	"log/slog"
)

// Client runs Cypher statements against a graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds every record a statement returned.
type Result struct {
	Records []Record
}

// Record maps return keys to values.
type Record map[string]any

// Options configures a Bolt connection.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// Logger receives lifecycle messages. Nil means slog.Default.
	Logger *slog.Logger
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
