package reviewgraph

import (
	"errors"
	"fmt"
)

// MaxPathVertices bounds enumerated paths: item, reviewer, item, reviewer,
// item. Longer bridges are connected but too distant to count as evidence.
const MaxPathVertices = 5

// ErrPathLimit is returned with the paths found so far when enumeration
// stops at the configured path ceiling.
var ErrPathLimit = errors.New("path limit reached")

// Path is one bridging path between two items.
type Path struct {
	// Vertices runs from the start item to the target item, alternating kinds.
	Vertices []Label
	// Weight is the sum of edge weights along the path.
	Weight int
	// Reviewers is the number of reviewer vertices on the path.
	Reviewers int
}

// Length is the number of vertices on the path.
func (p Path) Length() int {
	return len(p.Vertices)
}

// AverageWeight is the accumulated weight divided by the reviewer count.
func (p Path) AverageWeight() float64 {
	if p.Reviewers == 0 {
		return 0
	}
	return float64(p.Weight) / float64(p.Reviewers)
}

type pathOptions struct {
	maxPaths int
}

// PathOption tunes path enumeration.
type PathOption func(*pathOptions)

// WithMaxPaths stops enumeration once n paths have been found. Zero or a
// negative n disables the ceiling.
func WithMaxPaths(n int) PathOption {
	return func(o *pathOptions) {
		o.maxPaths = n
	}
}

// Paths enumerates every simple path of at most MaxPathVertices vertices
// between two distinct items. Each step must change vertex kind, so every
// returned path has odd length of at least three. No ordering is guaranteed.
//
// When a ceiling set by WithMaxPaths is hit, the paths found so far are
// returned together with ErrPathLimit.
func (g *Graph) Paths(start, target Label, opts ...PathOption) ([]Path, error) {
	var o pathOptions
	for _, opt := range opts {
		opt(&o)
	}

	if start == target {
		return nil, &VertexError{Op: "paths", Label: start, Err: ErrSameEndpoints}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, label := range []Label{start, target} {
		v, ok := g.vertices[label]
		if !ok {
			return nil, &VertexError{Op: "paths", Label: label, Err: ErrUnknownVertex}
		}
		if v.kind != KindItem {
			return nil, &VertexError{Op: "paths", Label: label, Err: ErrNotItem}
		}
	}

	w := &walker{
		g:        g,
		target:   target,
		maxPaths: o.maxPaths,
		visited:  make(map[Label]struct{}, MaxPathVertices),
		path:     make([]Label, 0, MaxPathVertices),
	}
	w.walk(start, 0)

	if w.limited {
		return w.found, fmt.Errorf("paths %q -> %q: %w", start, target, ErrPathLimit)
	}
	return w.found, nil
}

// walker owns the partial path and visited set of one enumeration. enter and
// leave are always paired so sibling branches never observe each other's
// state.
type walker struct {
	g         *Graph
	target    Label
	maxPaths  int
	visited   map[Label]struct{}
	path      []Label
	reviewers int
	found     []Path
	limited   bool
}

func (w *walker) walk(cur Label, weight int) {
	w.enter(cur)
	defer w.leave(cur)

	if cur == w.target {
		w.record(weight)
		return
	}
	if len(w.path) >= MaxPathVertices {
		return
	}

	v := w.g.vertices[cur]
	for next, edgeWeight := range v.neighbours {
		if w.limited {
			return
		}
		if _, onPath := w.visited[next]; onPath {
			continue
		}
		nv, ok := w.g.vertices[next]
		if !ok || nv.kind == v.kind {
			continue
		}
		w.walk(next, weight+edgeWeight)
	}
}

func (w *walker) enter(label Label) {
	w.visited[label] = struct{}{}
	w.path = append(w.path, label)
	if w.g.vertices[label].kind == KindReviewer {
		w.reviewers++
	}
}

func (w *walker) leave(label Label) {
	if w.g.vertices[label].kind == KindReviewer {
		w.reviewers--
	}
	w.path = w.path[:len(w.path)-1]
	delete(w.visited, label)
}

func (w *walker) record(weight int) {
	if w.reviewers == 0 || len(w.path)%2 == 0 {
		panic(fmt.Sprintf("reviewgraph: non-alternating path %v", w.path))
	}
	w.found = append(w.found, Path{
		Vertices:  append([]Label(nil), w.path...),
		Weight:    weight,
		Reviewers: w.reviewers,
	})
	if w.maxPaths > 0 && len(w.found) >= w.maxPaths {
		w.limited = true
	}
}
