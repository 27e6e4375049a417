// Package graphstore defines the node-and-typed-edge storage contract the
// R-tree persists itself through, together with an in-memory implementation
// and a caching decorator.
//
// The tree never allocates pointers between its nodes: every node is a
// store record addressed by a stable NodeID, and all parent/child structure
// is expressed as typed edges. This keeps the bidirectional tree shape free
// of ownership cycles and makes the whole index trivially exportable.
package graphstore

import (
	"context"
	"errors"

	"github.com/hupe1980/spatialgo/geom"
)

var (
	// ErrNodeNotFound is returned when a NodeID does not resolve to a
	// live node.
	ErrNodeNotFound = errors.New("graphstore: node not found")

	// ErrEdgeNotFound is returned when deleting an edge that does not
	// exist.
	ErrEdgeNotFound = errors.New("graphstore: edge not found")
)

// NodeID is a stable handle to a store node. The zero value is never a
// valid node.
type NodeID uint64

// EdgeType distinguishes the relationships the index creates between
// store nodes.
type EdgeType uint8

const (
	// EdgeChild links an internal index node to a child index node.
	EdgeChild EdgeType = iota + 1

	// EdgeEntry links a leaf index node to an indexed geometry entry.
	EdgeEntry

	// EdgeRoot links a layer node to the current root of its tree.
	// Replaced, not mutated, when the root splits.
	EdgeRoot

	// EdgeMetadata links a layer node to its tree metadata record.
	EdgeMetadata
)

// String returns a stable name for the edge type.
func (t EdgeType) String() string {
	switch t {
	case EdgeChild:
		return "child"
	case EdgeEntry:
		return "entry"
	case EdgeRoot:
		return "root"
	case EdgeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// NodeKind tags an index node as leaf or internal. A node is never both.
type NodeKind uint8

const (
	// KindNone marks nodes that are not index nodes (layer, metadata and
	// entry records).
	KindNone NodeKind = iota

	// KindInternal marks index nodes whose children are index nodes.
	KindInternal

	// KindLeaf marks index nodes whose children are geometry entries.
	KindLeaf
)

// String returns a stable name for the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindLeaf:
		return "leaf"
	default:
		return "none"
	}
}

// Metadata is the per-tree fanout configuration, persisted once per tree
// identity and read back on subsequent opens.
type Metadata struct {
	MaxNodeReferences int `json:"max_node_references"`
	MinNodeReferences int `json:"min_node_references"`
}

// Store is the node/typed-edge graph the index persists itself through.
//
// Implementations must return outgoing edges in creation order: the tree's
// split tie-breaking is defined over insertion order, and reproducible tree
// structure depends on it.
//
// Store implementations are not required to be safe for concurrent
// mutation; the index is single-writer by design.
type Store interface {
	// CreateNode allocates a new node and returns its handle.
	CreateNode(ctx context.Context) (NodeID, error)

	// CreateEdge adds a typed edge between two existing nodes.
	CreateEdge(ctx context.Context, from, to NodeID, t EdgeType) error

	// DeleteEdge removes a typed edge. Returns ErrEdgeNotFound if the
	// edge does not exist.
	DeleteEdge(ctx context.Context, from, to NodeID, t EdgeType) error

	// Outgoing returns the targets of all outgoing edges of the given
	// type, in edge creation order.
	Outgoing(ctx context.Context, from NodeID, t EdgeType) ([]NodeID, error)

	// CountOutgoing returns the number of outgoing edges of the given
	// type.
	CountOutgoing(ctx context.Context, from NodeID, t EdgeType) (int, error)

	// SingleOutgoing returns the target of the single outgoing edge of
	// the given type, or ok=false if no such edge exists.
	SingleOutgoing(ctx context.Context, from NodeID, t EdgeType) (to NodeID, ok bool, err error)

	// SingleIncoming returns the source of the single incoming edge of
	// the given type, or ok=false if no such edge exists.
	SingleIncoming(ctx context.Context, to NodeID, t EdgeType) (from NodeID, ok bool, err error)

	// Rect returns the node's bounding rectangle property, or ok=false
	// if the node has none yet.
	Rect(ctx context.Context, id NodeID) (r geom.Rect, ok bool, err error)

	// SetRect sets the node's bounding rectangle property.
	SetRect(ctx context.Context, id NodeID, r geom.Rect) error

	// Kind returns the node's index-node kind (KindNone for non-index
	// nodes).
	Kind(ctx context.Context, id NodeID) (NodeKind, error)

	// SetKind tags the node as leaf or internal. Set once at node
	// creation and fixed thereafter.
	SetKind(ctx context.Context, id NodeID, k NodeKind) error

	// Metadata returns the node's tree metadata property, or ok=false if
	// the node has none.
	Metadata(ctx context.Context, id NodeID) (m Metadata, ok bool, err error)

	// SetMetadata sets the node's tree metadata property.
	SetMetadata(ctx context.Context, id NodeID, m Metadata) error
}
