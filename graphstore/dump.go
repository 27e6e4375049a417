package graphstore

import (
	"context"
	"fmt"

	"github.com/hupe1980/spatialgo/geom"
)

// NodeDump is the portable form of one store node.
type NodeDump struct {
	ID   NodeID     `json:"id"`
	Kind NodeKind   `json:"kind,omitempty"`
	Rect *geom.Rect `json:"rect,omitempty"`
	Meta *Metadata  `json:"meta,omitempty"`
}

// EdgeDump is the portable form of one typed edge.
type EdgeDump struct {
	From NodeID   `json:"from"`
	To   NodeID   `json:"to"`
	Type EdgeType `json:"type"`
}

// Dump is a portable export of a whole store. Nodes are ordered by ID and
// edges by (source node, edge type, creation order), so exporting the same
// store twice yields identical dumps.
type Dump struct {
	NextID uint64     `json:"next_id"`
	Nodes  []NodeDump `json:"nodes"`
	Edges  []EdgeDump `json:"edges"`
}

var edgeTypes = []EdgeType{EdgeChild, EdgeEntry, EdgeRoot, EdgeMetadata}

// Export captures the full store content as a Dump.
func (s *MemoryStore) Export(_ context.Context) (*Dump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dump := &Dump{
		NextID: s.nextID,
		Nodes:  make([]NodeDump, 0, s.live.GetCardinality()),
	}

	it := s.live.Iterator()
	for it.HasNext() {
		id := NodeID(it.Next())
		n := s.nodes[id]

		nd := NodeDump{ID: id, Kind: n.kind}
		if n.rect != nil {
			r := *n.rect
			nd.Rect = &r
		}
		if n.meta != nil {
			m := *n.meta
			nd.Meta = &m
		}
		dump.Nodes = append(dump.Nodes, nd)

		for _, t := range edgeTypes {
			for _, to := range n.out[t] {
				dump.Edges = append(dump.Edges, EdgeDump{From: id, To: to, Type: t})
			}
		}
	}

	return dump, nil
}

// ImportMemoryStore reconstructs a MemoryStore from a Dump. Edge creation
// order within each (node, type) pair follows dump order, preserving the
// deterministic traversal order of the exported store.
func ImportMemoryStore(_ context.Context, dump *Dump) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.nextID = dump.NextID

	for _, nd := range dump.Nodes {
		if uint64(nd.ID) > dump.NextID {
			return nil, fmt.Errorf("graphstore: dump node %d beyond next_id %d", nd.ID, dump.NextID)
		}
		n := &memNode{
			kind:    nd.Kind,
			out:     make(map[EdgeType][]NodeID),
			inEdges: make(map[edgeKey]struct{}),
		}
		if nd.Rect != nil {
			r := *nd.Rect
			n.rect = &r
		}
		if nd.Meta != nil {
			m := *nd.Meta
			n.meta = &m
		}
		s.nodes[nd.ID] = n
		s.live.Add(uint64(nd.ID))
	}

	for _, e := range dump.Edges {
		src, ok := s.nodes[e.From]
		if !ok {
			return nil, fmt.Errorf("graphstore: dump edge source %d: %w", e.From, ErrNodeNotFound)
		}
		dst, ok := s.nodes[e.To]
		if !ok {
			return nil, fmt.Errorf("graphstore: dump edge target %d: %w", e.To, ErrNodeNotFound)
		}
		src.out[e.Type] = append(src.out[e.Type], e.To)
		dst.inEdges[edgeKey{node: e.From, typ: e.Type}] = struct{}{}
	}

	return s, nil
}
