package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleGraph(t *testing.T) *reviewgraph.Graph {
	t.Helper()
	g := reviewgraph.New()
	require.NoError(t, g.Update(func(m *reviewgraph.Mutator) error {
		for _, v := range []struct {
			label reviewgraph.Label
			kind  reviewgraph.Kind
		}{
			{"A (2000)", reviewgraph.KindItem},
			{"B (2001)", reviewgraph.KindItem},
			{"C (2002)", reviewgraph.KindItem},
			{"ann", reviewgraph.KindReviewer},
			{"bob", reviewgraph.KindReviewer},
		} {
			if err := m.AddVertex(v.label, v.kind); err != nil {
				return err
			}
		}
		for _, e := range []reviewgraph.EdgeRecord{
			{A: "ann", B: "A (2000)", Weight: 8},
			{A: "ann", B: "B (2001)", Weight: 9},
			{A: "bob", B: "B (2001)", Weight: 6},
		} {
			if err := m.AddEdge(e.A, e.B, e.Weight); err != nil {
				return err
			}
		}
		return nil
	}))
	return g
}

func TestEncodeDecode(t *testing.T) {
	g := sampleGraph(t)

	data, err := Encode(g)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, g.Export(), restored.Export())
}

func TestDecodeCorrupt(t *testing.T) {
	data, err := Encode(sampleGraph(t))
	require.NoError(t, err)

	_, err = Decode([]byte("not a snapshot"))
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(data[:len(data)/2])
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "graph.snap"))

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	g := sampleGraph(t)
	require.NoError(t, store.Save(ctx, g))

	restored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Stats(), restored.Stats())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	require.NoError(t, store.Invalidate(ctx))
	require.NoError(t, store.Invalidate(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.snap")
	require.NoError(t, os.WriteFile(path, []byte{0xc1, 0x00}, 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	g := sampleGraph(t)
	require.NoError(t, store.Save(ctx, g))

	restored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Export(), restored.Export())

	require.NoError(t, store.Invalidate(ctx))
	require.NoError(t, store.Invalidate(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

type stubStore struct {
	loadErr error
	graph   *reviewgraph.Graph
	saved   int
	saveErr error
}

func (s *stubStore) Load(context.Context) (*reviewgraph.Graph, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.graph, nil
}

func (s *stubStore) Save(_ context.Context, g *reviewgraph.Graph) error {
	s.saved++
	s.graph = g
	return s.saveErr
}

func (s *stubStore) Invalidate(context.Context) error {
	s.graph = nil
	return nil
}

func TestLoaderRestoresSnapshot(t *testing.T) {
	store := &stubStore{graph: sampleGraph(t)}
	builds := 0
	l := NewLoader(store, func(context.Context) (*reviewgraph.Graph, error) {
		builds++
		return reviewgraph.New(), nil
	}, quiet)

	g, src, err := l.LoadWithSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, src)
	assert.Same(t, store.graph, g)
	assert.Zero(t, builds)
	assert.Zero(t, store.saved)
}

func TestLoaderRebuilds(t *testing.T) {
	for name, loadErr := range map[string]error{
		"not found": ErrNotFound,
		"corrupt":   errors.Join(ErrCorrupt, errors.New("bad checksum")),
	} {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{loadErr: loadErr}
			built := sampleGraph(t)
			l := NewLoader(store, func(context.Context) (*reviewgraph.Graph, error) {
				return built, nil
			}, quiet)

			g, src, err := l.LoadWithSource(context.Background())
			require.NoError(t, err)
			assert.Equal(t, SourceDataset, src)
			assert.Same(t, built, g)
			assert.Equal(t, 1, store.saved)
		})
	}
}

func TestLoaderPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	l := NewLoader(&stubStore{loadErr: boom}, func(context.Context) (*reviewgraph.Graph, error) {
		t.Fatal("build must not run")
		return nil, nil
	}, quiet)

	_, err := l.Load(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLoaderSaveFailureIsNotFatal(t *testing.T) {
	store := &stubStore{loadErr: ErrNotFound, saveErr: errors.New("read only")}
	l := NewLoader(store, func(context.Context) (*reviewgraph.Graph, error) {
		return sampleGraph(t), nil
	}, quiet)

	g, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestLoaderWithoutStore(t *testing.T) {
	l := NewLoader(nil, func(context.Context) (*reviewgraph.Graph, error) {
		return sampleGraph(t), nil
	}, quiet)

	_, src, err := l.LoadWithSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDataset, src)
}

func TestLoaderEndToEndWithFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "graph.snap"))
	builds := 0
	build := func(context.Context) (*reviewgraph.Graph, error) {
		builds++
		return sampleGraph(t), nil
	}

	_, src, err := NewLoader(store, build, quiet).LoadWithSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceDataset, src)

	_, src, err = NewLoader(store, build, quiet).LoadWithSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, src)
	assert.Equal(t, 1, builds)
}
