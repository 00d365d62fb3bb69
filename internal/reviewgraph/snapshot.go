package reviewgraph

import (
	"fmt"
	"sort"
)

// Snapshot is the complete, serialisable state of a Graph. Each edge appears
// once with A < B.
type Snapshot struct {
	Vertices []VertexRecord `msgpack:"vertices" json:"vertices"`
	Edges    []EdgeRecord   `msgpack:"edges" json:"edges"`
}

// VertexRecord is one vertex in a Snapshot.
type VertexRecord struct {
	Label Label `msgpack:"label" json:"label"`
	Kind  Kind  `msgpack:"kind" json:"kind"`
}

// EdgeRecord is one undirected edge in a Snapshot.
type EdgeRecord struct {
	A      Label `msgpack:"a" json:"a"`
	B      Label `msgpack:"b" json:"b"`
	Weight int   `msgpack:"w" json:"weight"`
}

// Export captures the graph in deterministic order.
func (g *Graph) Export() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Vertices: make([]VertexRecord, 0, len(g.vertices)),
		Edges:    make([]EdgeRecord, 0, g.edges),
	}
	for label, v := range g.vertices {
		snap.Vertices = append(snap.Vertices, VertexRecord{Label: label, Kind: v.kind})
		for n, w := range v.neighbours {
			if label < n {
				snap.Edges = append(snap.Edges, EdgeRecord{A: label, B: n, Weight: w})
			}
		}
	}
	sort.Slice(snap.Vertices, func(i, j int) bool { return snap.Vertices[i].Label < snap.Vertices[j].Label })
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].A != snap.Edges[j].A {
			return snap.Edges[i].A < snap.Edges[j].A
		}
		return snap.Edges[i].B < snap.Edges[j].B
	})
	return snap
}

// FromSnapshot rebuilds a graph, validating every vertex and edge as it is
// applied.
func FromSnapshot(snap Snapshot) (*Graph, error) {
	g := New()
	err := g.Update(func(m *Mutator) error {
		for _, v := range snap.Vertices {
			if err := m.AddVertex(v.Label, v.Kind); err != nil {
				return err
			}
		}
		for i, e := range snap.Edges {
			if err := m.AddEdge(e.A, e.B, e.Weight); err != nil {
				return fmt.Errorf("edge %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore graph: %w", err)
	}
	return g, nil
}
