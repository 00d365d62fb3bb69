// Package snapshot persists review graphs so they need not be rebuilt from
// the dataset on every start.
//
// Snapshots are msgpack encoded, gzip compressed and carry a SHA-256
// checksum of the uncompressed payload. FileStore keeps one snapshot in a
// file; BadgerStore keeps it under a key in a badger database.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// formatVersion changes whenever the encoded layout does.
const formatVersion = 1

var (
	// ErrNotFound indicates no snapshot has been saved.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt indicates a snapshot that cannot be decoded or fails its checksum.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Provider yields a review graph.
type Provider interface {
	Load(ctx context.Context) (*reviewgraph.Graph, error)
}

// Store is a Provider that can also persist and discard a snapshot.
type Store interface {
	Provider
	Save(ctx context.Context, g *reviewgraph.Graph) error
	Invalidate(ctx context.Context) error
}

type envelope struct {
	Version  int       `msgpack:"v"`
	SavedAt  time.Time `msgpack:"saved_at"`
	Checksum string    `msgpack:"checksum"`
	Payload  []byte    `msgpack:"payload"`
}

// Encode serialises g.
func Encode(g *reviewgraph.Graph) ([]byte, error) {
	raw, err := msgpack.Marshal(g.Export())
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	sum := sha256.Sum256(raw)

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress graph: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress graph: %w", err)
	}

	out, err := msgpack.Marshal(envelope{
		Version:  formatVersion,
		SavedAt:  time.Now().UTC(),
		Checksum: hex.EncodeToString(sum[:]),
		Payload:  compressed.Bytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// Decode restores a graph written by Encode. Every decoding failure wraps
// ErrCorrupt.
func Decode(data []byte) (*reviewgraph.Graph, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrCorrupt, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}

	zr, err := gzip.NewReader(bytes.NewReader(env.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}

	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var snap reviewgraph.Snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: graph: %v", ErrCorrupt, err)
	}
	g, err := reviewgraph.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return g, nil
}
