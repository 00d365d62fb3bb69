// Package reviewgraph holds the bipartite reviewer/item graph that backs
// recommendations, together with the bounded path enumeration used to score
// item pairs.
//
// A Graph is safe for concurrent use. Reads (neighbour lookups, path
// enumeration) share a read lock; AddVertex and AddEdge take the write lock,
// so ingesting a new reviewer is serialised against in-flight traversals.
package reviewgraph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind tags a vertex as a reviewer or an item.
type Kind uint8

const (
	kindInvalid Kind = iota
	// KindReviewer marks a vertex that rates items.
	KindReviewer
	// KindItem marks a recommendable vertex (a film).
	KindItem
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindReviewer:
		return "reviewer"
	case KindItem:
		return "item"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the recognised kinds.
func (k Kind) Valid() bool {
	return k == KindReviewer || k == KindItem
}

// Label identifies a vertex: a reviewer name or an item title.
type Label string

var (
	// ErrUnknownVertex indicates an operation referenced a label with no vertex.
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrInvalidKind indicates a vertex kind outside the recognised set.
	ErrInvalidKind = errors.New("invalid vertex kind")
	// ErrSelfLoop indicates an edge between a vertex and itself.
	ErrSelfLoop = errors.New("self loop")
	// ErrSameEndpoints indicates path enumeration between a vertex and itself.
	ErrSameEndpoints = errors.New("path endpoints are identical")
	// ErrNotItem indicates a path endpoint that is not an item vertex.
	ErrNotItem = errors.New("vertex is not an item")
	// ErrInvalidWeight indicates a non-positive edge weight.
	ErrInvalidWeight = errors.New("edge weight must be positive")
)

// VertexError records the operation and label that caused a graph error.
type VertexError struct {
	Op    string
	Label Label
	Err   error
}

func (e *VertexError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Label, e.Err)
}

func (e *VertexError) Unwrap() error {
	return e.Err
}

// Neighbor is an adjacent vertex and the weight of the connecting edge.
type Neighbor struct {
	Label  Label
	Weight int
}

type vertex struct {
	kind       Kind
	neighbours map[Label]int
}

// Graph is an undirected, weighted adjacency structure over reviewer and
// item vertices. Adjacency is kept symmetric: every edge is stored on both
// endpoints with the same weight.
type Graph struct {
	mu       sync.RWMutex
	vertices map[Label]*vertex
	edges    int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{vertices: make(map[Label]*vertex)}
}

// AddVertex inserts a vertex when label is absent. Adding an existing label
// is a no-op and never changes its kind.
func (g *Graph) AddVertex(label Label, kind Kind) error {
	return g.Update(func(m *Mutator) error {
		return m.AddVertex(label, kind)
	})
}

// AddEdge connects two existing vertices with the given weight, overwriting
// the weight of an existing edge. Callers are responsible for only joining a
// reviewer to an item; path enumeration ignores same-kind edges.
func (g *Graph) AddEdge(a, b Label, weight int) error {
	return g.Update(func(m *Mutator) error {
		return m.AddEdge(a, b, weight)
	})
}

// Neighbors returns the vertices adjacent to label, sorted by label.
// An isolated vertex yields an empty, non-nil slice.
func (g *Graph) Neighbors(label Label) ([]Neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[label]
	if !ok {
		return nil, &VertexError{Op: "neighbors", Label: label, Err: ErrUnknownVertex}
	}

	out := make([]Neighbor, 0, len(v.neighbours))
	for n, w := range v.neighbours {
		out = append(out, Neighbor{Label: n, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Vertices returns every vertex label, or only those of the given kinds,
// sorted ascending.
func (g *Graph) Vertices(kinds ...Kind) []Label {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Label, 0, len(g.vertices))
	for label, v := range g.vertices {
		if len(kinds) > 0 && !containsKind(kinds, v.kind) {
			continue
		}
		out = append(out, label)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kind returns the kind of label and whether the vertex exists.
func (g *Graph) Kind(label Label) (Kind, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[label]
	if !ok {
		return kindInvalid, false
	}
	return v.kind, true
}

// Weight returns the weight of the edge between a and b.
func (g *Graph) Weight(a, b Label) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[a]
	if !ok {
		return 0, false
	}
	w, ok := v.neighbours[b]
	return w, ok
}

// Adjacent reports whether a and b share an edge. Unknown labels are not
// adjacent to anything.
func (g *Graph) Adjacent(a, b Label) bool {
	_, ok := g.Weight(a, b)
	return ok
}

// Connected reports whether any path, of any length, joins a and b.
func (g *Graph) Connected(a, b Label) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.vertices[a]; !ok {
		return false
	}
	if _, ok := g.vertices[b]; !ok {
		return false
	}

	visited := map[Label]struct{}{a: {}}
	stack := []Label{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == b {
			return true
		}
		for n := range g.vertices[cur].neighbours {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			stack = append(stack, n)
		}
	}
	return false
}

// Stats summarises graph size.
type Stats struct {
	Reviewers int
	Items     int
	Edges     int
}

// Stats returns vertex counts per kind and the number of edges.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var s Stats
	for _, v := range g.vertices {
		switch v.kind {
		case KindReviewer:
			s.Reviewers++
		case KindItem:
			s.Items++
		}
	}
	s.Edges = g.edges
	return s
}

// Update runs fn while holding the write lock, giving it a Mutator that
// applies several changes atomically with respect to readers.
func (g *Graph) Update(fn func(m *Mutator) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&Mutator{g: g})
}

// Mutator applies changes to a graph whose write lock is already held.
type Mutator struct {
	g *Graph
}

// AddVertex behaves like Graph.AddVertex.
func (m *Mutator) AddVertex(label Label, kind Kind) error {
	if !kind.Valid() {
		return &VertexError{Op: "add vertex", Label: label, Err: ErrInvalidKind}
	}
	if _, ok := m.g.vertices[label]; !ok {
		m.g.vertices[label] = &vertex{kind: kind, neighbours: make(map[Label]int)}
	}
	return nil
}

// AddEdge behaves like Graph.AddEdge.
func (m *Mutator) AddEdge(a, b Label, weight int) error {
	if a == b {
		return &VertexError{Op: "add edge", Label: a, Err: ErrSelfLoop}
	}
	if weight <= 0 {
		return &VertexError{Op: "add edge", Label: a, Err: ErrInvalidWeight}
	}
	va, ok := m.g.vertices[a]
	if !ok {
		return &VertexError{Op: "add edge", Label: a, Err: ErrUnknownVertex}
	}
	vb, ok := m.g.vertices[b]
	if !ok {
		return &VertexError{Op: "add edge", Label: b, Err: ErrUnknownVertex}
	}
	if _, exists := va.neighbours[b]; !exists {
		m.g.edges++
	}
	va.neighbours[b] = weight
	vb.neighbours[a] = weight
	return nil
}

// Kind behaves like Graph.Kind.
func (m *Mutator) Kind(label Label) (Kind, bool) {
	v, ok := m.g.vertices[label]
	if !ok {
		return kindInvalid, false
	}
	return v.kind, true
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
