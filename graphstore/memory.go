package graphstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/spatialgo/geom"
)

type edgeKey struct {
	node NodeID
	typ  EdgeType
}

type memNode struct {
	rect    *geom.Rect
	kind    NodeKind
	meta    *Metadata
	out     map[EdgeType][]NodeID
	inEdges map[edgeKey]struct{} // reverse index: (source, type) pairs
}

// MemoryStore is an in-memory Store implementation backed by an arena of
// node records addressed by monotonically increasing handles.
//
// Outgoing edges are kept as per-type slices in creation order, which makes
// every traversal deterministic. Safe for concurrent use; callers still
// must not mutate the same tree from multiple writers.
type MemoryStore struct {
	mu     sync.RWMutex
	nodes  map[NodeID]*memNode
	live   *roaring64.Bitmap // allocated node IDs, sorted iteration for export
	nextID uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[NodeID]*memNode),
		live:  roaring64.New(),
	}
}

// Len returns the number of live nodes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.live.GetCardinality())
}

// CreateNode allocates a new node and returns its handle.
func (s *MemoryStore) CreateNode(_ context.Context) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := NodeID(s.nextID)
	s.nodes[id] = &memNode{
		out:     make(map[EdgeType][]NodeID),
		inEdges: make(map[edgeKey]struct{}),
	}
	s.live.Add(uint64(id))
	return id, nil
}

func (s *MemoryStore) node(id NodeID) (*memNode, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// CreateEdge adds a typed edge between two existing nodes.
func (s *MemoryStore) CreateEdge(_ context.Context, from, to NodeID, t EdgeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.node(from)
	if err != nil {
		return err
	}
	dst, err := s.node(to)
	if err != nil {
		return err
	}

	src.out[t] = append(src.out[t], to)
	dst.inEdges[edgeKey{node: from, typ: t}] = struct{}{}
	return nil
}

// DeleteEdge removes a typed edge.
func (s *MemoryStore) DeleteEdge(_ context.Context, from, to NodeID, t EdgeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.node(from)
	if err != nil {
		return err
	}
	dst, err := s.node(to)
	if err != nil {
		return err
	}

	targets := src.out[t]
	for i, candidate := range targets {
		if candidate == to {
			src.out[t] = append(targets[:i:i], targets[i+1:]...)
			delete(dst.inEdges, edgeKey{node: from, typ: t})
			return nil
		}
	}
	return fmt.Errorf("%w: %d-[%s]->%d", ErrEdgeNotFound, from, t, to)
}

// Outgoing returns edge targets in creation order.
func (s *MemoryStore) Outgoing(_ context.Context, from NodeID, t EdgeType) ([]NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.node(from)
	if err != nil {
		return nil, err
	}
	targets := src.out[t]
	out := make([]NodeID, len(targets))
	copy(out, targets)
	return out, nil
}

// CountOutgoing returns the number of outgoing edges of the given type.
func (s *MemoryStore) CountOutgoing(_ context.Context, from NodeID, t EdgeType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.node(from)
	if err != nil {
		return 0, err
	}
	return len(src.out[t]), nil
}

// SingleOutgoing returns the target of the single outgoing edge of type t.
func (s *MemoryStore) SingleOutgoing(_ context.Context, from NodeID, t EdgeType) (NodeID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.node(from)
	if err != nil {
		return 0, false, err
	}
	targets := src.out[t]
	if len(targets) == 0 {
		return 0, false, nil
	}
	return targets[0], true, nil
}

// SingleIncoming returns the source of the single incoming edge of type t.
func (s *MemoryStore) SingleIncoming(_ context.Context, to NodeID, t EdgeType) (NodeID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dst, err := s.node(to)
	if err != nil {
		return 0, false, err
	}
	for key := range dst.inEdges {
		if key.typ == t {
			return key.node, true, nil
		}
	}
	return 0, false, nil
}

// Rect returns the node's bounding rectangle property.
func (s *MemoryStore) Rect(_ context.Context, id NodeID) (geom.Rect, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.node(id)
	if err != nil {
		return geom.Rect{}, false, err
	}
	if n.rect == nil {
		return geom.Rect{}, false, nil
	}
	return *n.rect, true, nil
}

// SetRect sets the node's bounding rectangle property.
func (s *MemoryStore) SetRect(_ context.Context, id NodeID, r geom.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return err
	}
	n.rect = &r
	return nil
}

// Kind returns the node's index-node kind.
func (s *MemoryStore) Kind(_ context.Context, id NodeID) (NodeKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.node(id)
	if err != nil {
		return KindNone, err
	}
	return n.kind, nil
}

// SetKind tags the node as leaf or internal.
func (s *MemoryStore) SetKind(_ context.Context, id NodeID, k NodeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return err
	}
	n.kind = k
	return nil
}

// Metadata returns the node's tree metadata property.
func (s *MemoryStore) Metadata(_ context.Context, id NodeID) (Metadata, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.node(id)
	if err != nil {
		return Metadata{}, false, err
	}
	if n.meta == nil {
		return Metadata{}, false, nil
	}
	return *n.meta, true, nil
}

// SetMetadata sets the node's tree metadata property.
func (s *MemoryStore) SetMetadata(_ context.Context, id NodeID, m Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return err
	}
	n.meta = &m
	return nil
}
