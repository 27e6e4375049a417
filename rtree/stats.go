package rtree

import (
	"context"
	"fmt"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
)

// Stats describes the shape of a tree.
type Stats struct {
	// Height is the number of node levels, counting the root. An empty
	// tree (bare leaf root) has height 1.
	Height int

	// NodeCount is the total number of index nodes.
	NodeCount int

	// LeafCount is the number of leaf nodes.
	LeafCount int

	// EntryCount is the number of indexed entries.
	EntryCount int
}

// Stats walks the tree and returns its shape.
func (t *Tree) Stats(ctx context.Context) (Stats, error) {
	root, err := t.root(ctx)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	if err := t.collectStats(ctx, root, 1, &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (t *Tree) collectStats(ctx context.Context, node graphstore.NodeID, depth int, s *Stats) error {
	s.NodeCount++
	if depth > s.Height {
		s.Height = depth
	}

	kind, err := t.store.Kind(ctx, node)
	if err != nil {
		return err
	}

	if kind == graphstore.KindLeaf {
		s.LeafCount++
		n, err := t.store.CountOutgoing(ctx, node, graphstore.EdgeEntry)
		if err != nil {
			return err
		}
		s.EntryCount += n
		return nil
	}

	children, err := t.store.Outgoing(ctx, node, graphstore.EdgeChild)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := t.collectStats(ctx, child, depth+1, s); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the structural invariants of the whole tree: every node
// rectangle is the exact union of its children's rectangles, every
// non-root node's child count is within [min, max], and every child's
// parent link points back at its actual parent. Intended for tests and
// debugging; cost is linear in tree size.
func (t *Tree) Validate(ctx context.Context) error {
	root, err := t.root(ctx)
	if err != nil {
		return err
	}
	return t.validateNode(ctx, root, true)
}

func (t *Tree) validateNode(ctx context.Context, node graphstore.NodeID, isRoot bool) error {
	kind, err := t.store.Kind(ctx, node)
	if err != nil {
		return err
	}

	et := graphstore.EdgeChild
	if kind == graphstore.KindLeaf {
		et = graphstore.EdgeEntry
	}

	children, err := t.store.Outgoing(ctx, node, et)
	if err != nil {
		return err
	}

	if isRoot && kind == graphstore.KindLeaf && len(children) == 0 {
		// Empty tree.
		return nil
	}

	if !isRoot {
		if len(children) < t.minNodeReferences || len(children) > t.maxNodeReferences {
			return fmt.Errorf("rtree: node %d violates fill invariant: %d children, want [%d, %d]",
				node, len(children), t.minNodeReferences, t.maxNodeReferences)
		}
	}
	if len(children) == 0 {
		return &ErrCorruptedIndex{Node: node, Reason: "node has no children"}
	}

	var union geom.Rect
	for i, child := range children {
		childRect, ok, err := t.store.Rect(ctx, child)
		if err != nil {
			return err
		}
		if !ok {
			return &ErrCorruptedIndex{Node: child, Reason: "child has no bounding rectangle"}
		}
		if i == 0 {
			union = childRect
		} else {
			union = union.Union(childRect)
		}

		if kind == graphstore.KindInternal {
			parent, ok, err := t.parent(ctx, child)
			if err != nil {
				return err
			}
			if !ok || parent != node {
				return &ErrCorruptedIndex{Node: child, Reason: "parent link does not match child set"}
			}
			if err := t.validateNode(ctx, child, false); err != nil {
				return err
			}
		}
	}

	nodeRect, ok, err := t.store.Rect(ctx, node)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrCorruptedIndex{Node: node, Reason: "node has no bounding rectangle"}
	}
	if nodeRect != union {
		return fmt.Errorf("rtree: node %d rectangle %+v is not the union of its children %+v", node, nodeRect, union)
	}
	return nil
}
