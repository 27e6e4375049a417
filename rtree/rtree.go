package rtree

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
)

// ErrMissingRectangle is returned when an entry offered to Insert carries
// no bounding rectangle property.
var ErrMissingRectangle = errors.New("rtree: entry has no bounding rectangle")

// Options represents the fanout configuration of a tree.
type Options struct {
	// MaxNodeReferences is the fanout ceiling: a node holding this many
	// children overflows on the next insertion and is split.
	MaxNodeReferences int

	// MinNodeReferences is the fanout floor every non-root node must
	// satisfy. The split's forced-completion rule guarantees it.
	MinNodeReferences int
}

// DefaultOptions holds the default fanout parameters.
var DefaultOptions = Options{
	MaxNodeReferences: 100,
	MinNodeReferences: 40,
}

// GeometryResolver resolves an entry handle to its exact geometry. The
// search engine calls it only for candidates whose bounding rectangle
// overlaps, but is not contained in, the query rectangle.
type GeometryResolver interface {
	Geometry(ctx context.Context, id graphstore.NodeID) (geom.Geometry, error)
}

// Tree is an R-tree bound to one tree identity (layer node) in a
// graphstore.Store.
//
// Insert is not safe to call concurrently with itself or with Search on
// the same tree; the tree holds no locks and relies on external
// serialization.
type Tree struct {
	store             graphstore.Store
	layer             graphstore.NodeID
	maxNodeReferences int
	minNodeReferences int
}

// Open binds a Tree to the given layer node, creating the metadata record
// and an empty leaf root if this tree identity has never been used.
//
// Open is idempotent: if metadata is already persisted for the layer, the
// persisted fanout parameters win and any configured values are ignored.
func Open(ctx context.Context, store graphstore.Store, layer graphstore.NodeID, optFns ...func(o *Options)) (*Tree, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	t := &Tree{
		store:             store,
		layer:             layer,
		maxNodeReferences: opts.MaxNodeReferences,
		minNodeReferences: opts.MinNodeReferences,
	}

	// Reject unusable parameters before anything is persisted.
	if t.minNodeReferences < 1 || t.minNodeReferences > t.maxNodeReferences {
		return nil, &ErrInvalidFanout{Max: t.maxNodeReferences, Min: t.minNodeReferences}
	}

	if err := t.initMetadata(ctx); err != nil {
		return nil, err
	}

	// Persisted metadata overrides the configured values; it must satisfy
	// the same conditions.
	if t.minNodeReferences < 1 || t.minNodeReferences > t.maxNodeReferences {
		return nil, &ErrInvalidFanout{Max: t.maxNodeReferences, Min: t.minNodeReferences}
	}

	if err := t.initRoot(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// MaxNodeReferences returns the effective fanout ceiling.
func (t *Tree) MaxNodeReferences() int { return t.maxNodeReferences }

// MinNodeReferences returns the effective fanout floor.
func (t *Tree) MinNodeReferences() int { return t.minNodeReferences }

// Layer returns the layer node this tree is bound to.
func (t *Tree) Layer() graphstore.NodeID { return t.layer }

func (t *Tree) initMetadata(ctx context.Context) error {
	metaNode, ok, err := t.store.SingleOutgoing(ctx, t.layer, graphstore.EdgeMetadata)
	if err != nil {
		return err
	}

	if ok {
		meta, found, err := t.store.Metadata(ctx, metaNode)
		if err != nil {
			return err
		}
		if !found {
			return &ErrCorruptedIndex{Node: metaNode, Reason: "metadata record has no metadata property"}
		}
		t.maxNodeReferences = meta.MaxNodeReferences
		t.minNodeReferences = meta.MinNodeReferences
		return nil
	}

	metaNode, err = t.store.CreateNode(ctx)
	if err != nil {
		return err
	}
	if err := t.store.SetMetadata(ctx, metaNode, graphstore.Metadata{
		MaxNodeReferences: t.maxNodeReferences,
		MinNodeReferences: t.minNodeReferences,
	}); err != nil {
		return err
	}
	return t.store.CreateEdge(ctx, t.layer, metaNode, graphstore.EdgeMetadata)
}

func (t *Tree) initRoot(ctx context.Context) error {
	_, ok, err := t.store.SingleOutgoing(ctx, t.layer, graphstore.EdgeRoot)
	if err != nil || ok {
		return err
	}

	root, err := t.store.CreateNode(ctx)
	if err != nil {
		return err
	}
	if err := t.store.SetKind(ctx, root, graphstore.KindLeaf); err != nil {
		return err
	}
	return t.store.CreateEdge(ctx, t.layer, root, graphstore.EdgeRoot)
}

func (t *Tree) root(ctx context.Context) (graphstore.NodeID, error) {
	root, ok, err := t.store.SingleOutgoing(ctx, t.layer, graphstore.EdgeRoot)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ErrCorruptedIndex{Node: t.layer, Reason: "layer has no root edge"}
	}
	return root, nil
}

// Insert adds one geometry entry to the tree. The entry must already exist
// in the store and carry a bounding rectangle property.
func (t *Tree) Insert(ctx context.Context, entry graphstore.NodeID) error {
	entryRect, ok, err := t.store.Rect(ctx, entry)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: node %d", ErrMissingRectangle, entry)
	}

	node, err := t.root(ctx)
	if err != nil {
		return err
	}

	// Choose a path down to a leaf.
	for {
		kind, err := t.store.Kind(ctx, node)
		if err != nil {
			return err
		}
		if kind == graphstore.KindLeaf {
			break
		}
		node, err = t.chooseSubtree(ctx, node, entryRect)
		if err != nil {
			return err
		}
	}

	count, err := t.store.CountOutgoing(ctx, node, graphstore.EdgeEntry)
	if err != nil {
		return err
	}

	if count == t.maxNodeReferences {
		// This insertion overflows the leaf: add the entry anyway, then
		// split and let the split recurse upward.
		if _, err := t.addChild(ctx, node, graphstore.EdgeEntry, entry); err != nil {
			return err
		}
		return t.splitAndAdjustPath(ctx, node)
	}

	grown, err := t.addChild(ctx, node, graphstore.EdgeEntry, entry)
	if err != nil {
		return err
	}
	if grown {
		return t.adjustPath(ctx, node)
	}
	return nil
}

// chooseSubtree picks the child of parent the new rectangle should descend
// into: a containing child if one exists (smallest area wins), otherwise
// the child needing the minimum enlargement (smallest area breaks ties).
// First-seen wins on exact ties, which is deterministic because Outgoing
// returns children in creation order.
func (t *Tree) chooseSubtree(ctx context.Context, parent graphstore.NodeID, r geom.Rect) (graphstore.NodeID, error) {
	children, err := t.store.Outgoing(ctx, parent, graphstore.EdgeChild)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, &ErrCorruptedIndex{Node: parent, Reason: "internal node has no children"}
	}

	rects := make([]geom.Rect, len(children))
	for i, child := range children {
		childRect, ok, err := t.store.Rect(ctx, child)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, &ErrCorruptedIndex{Node: child, Reason: "index node has no bounding rectangle"}
		}
		rects[i] = childRect
	}

	// Phase 1: children already containing the new rectangle.
	best := -1
	for i, childRect := range rects {
		if !childRect.Contains(r) {
			continue
		}
		if best < 0 || childRect.Area() < rects[best].Area() {
			best = i
		}
	}
	if best >= 0 {
		return children[best], nil
	}

	// Phase 2: minimum enlargement, smallest area on ties.
	bestEnlargement := 0.0
	for i, childRect := range rects {
		enlargement := childRect.Enlargement(r)
		switch {
		case best < 0 || enlargement < bestEnlargement:
			best = i
			bestEnlargement = enlargement
		case enlargement == bestEnlargement && childRect.Area() < rects[best].Area():
			best = i
		}
	}
	return children[best], nil
}

// addChild creates the child edge and grows the parent's rectangle to
// cover the child. It reports whether the parent's rectangle changed.
func (t *Tree) addChild(ctx context.Context, parent graphstore.NodeID, et graphstore.EdgeType, child graphstore.NodeID) (bool, error) {
	if err := t.store.CreateEdge(ctx, parent, child, et); err != nil {
		return false, err
	}
	return t.adjustParentRect(ctx, parent, child)
}

// adjustParentRect grows parent's rectangle to cover child's. A parent
// without a rectangle adopts the child's rectangle outright (first-child
// case). Rectangles only ever expand here; splits are the only place a
// rectangle is rewritten wholesale.
func (t *Tree) adjustParentRect(ctx context.Context, parent, child graphstore.NodeID) (bool, error) {
	childRect, ok, err := t.store.Rect(ctx, child)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, &ErrCorruptedIndex{Node: child, Reason: "child has no bounding rectangle"}
	}

	parentRect, ok, err := t.store.Rect(ctx, parent)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, t.store.SetRect(ctx, parent, childRect)
	}

	grown := parentRect.Union(childRect)
	if grown == parentRect {
		return false, nil
	}
	return true, t.store.SetRect(ctx, parent, grown)
}

// adjustPath propagates a rectangle expansion from node toward the root,
// stopping at the first ancestor whose rectangle did not change.
// Rectangles only expand, so an unchanged ancestor means everything above
// it is already consistent.
func (t *Tree) adjustPath(ctx context.Context, node graphstore.NodeID) error {
	for {
		parent, ok, err := t.parent(ctx, node)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		changed, err := t.adjustParentRect(ctx, parent, node)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		node = parent
	}
}

func (t *Tree) parent(ctx context.Context, node graphstore.NodeID) (graphstore.NodeID, bool, error) {
	return t.store.SingleIncoming(ctx, node, graphstore.EdgeChild)
}

// BoundingBox returns the rectangle covering every indexed entry, or
// ErrEmptyIndex if nothing has been inserted yet.
func (t *Tree) BoundingBox(ctx context.Context) (geom.Rect, error) {
	root, err := t.root(ctx)
	if err != nil {
		return geom.Rect{}, err
	}

	r, ok, err := t.store.Rect(ctx, root)
	if err != nil {
		return geom.Rect{}, err
	}
	if !ok {
		return geom.Rect{}, ErrEmptyIndex
	}
	return r, nil
}
