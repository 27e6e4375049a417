package rtree

import (
	"context"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
)

// splitAndAdjustPath resolves an overflowing node: split it, hook the new
// sibling into the parent and either recurse (parent overflows too) or
// finish with plain bounding-box propagation. A root split creates a new
// root, the only way tree height grows.
func (t *Tree) splitAndAdjustPath(ctx context.Context, node graphstore.NodeID) error {
	sibling, err := t.quadraticSplit(ctx, node)
	if err != nil {
		return err
	}

	parent, ok, err := t.parent(ctx, node)
	if err != nil {
		return err
	}
	if !ok {
		return t.createNewRoot(ctx, node, sibling)
	}

	if _, err := t.adjustParentRect(ctx, parent, node); err != nil {
		return err
	}
	if _, err := t.addChild(ctx, parent, graphstore.EdgeChild, sibling); err != nil {
		return err
	}

	count, err := t.store.CountOutgoing(ctx, parent, graphstore.EdgeChild)
	if err != nil {
		return err
	}
	if count > t.maxNodeReferences {
		return t.splitAndAdjustPath(ctx, parent)
	}
	return t.adjustPath(ctx, parent)
}

// quadraticSplit redistributes the children of an overflowing node into
// two minimum-fill-respecting groups. The node keeps group 1; a newly
// created sibling of the same kind receives group 2. Both rectangles are
// rewritten to the exact union of their group.
//
// All tie-breaking is first-found over edge creation order, so identical
// insertion sequences always produce identical trees.
func (t *Tree) quadraticSplit(ctx context.Context, node graphstore.NodeID) (graphstore.NodeID, error) {
	kind, err := t.store.Kind(ctx, node)
	if err != nil {
		return 0, err
	}
	et := graphstore.EdgeChild
	if kind == graphstore.KindLeaf {
		et = graphstore.EdgeEntry
	}

	// Detach every child into a flat candidate set.
	children, err := t.store.Outgoing(ctx, node, et)
	if err != nil {
		return 0, err
	}
	rects := make([]geom.Rect, len(children))
	for i, child := range children {
		r, ok, err := t.store.Rect(ctx, child)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, &ErrCorruptedIndex{Node: child, Reason: "split candidate has no bounding rectangle"}
		}
		rects[i] = r
		if err := t.store.DeleteEdge(ctx, node, child, et); err != nil {
			return 0, err
		}
	}

	// Seed selection: the pair of candidates wasting the most space when
	// combined becomes the two group seeds.
	seed1, seed2 := 0, 1
	worst := math.Inf(-1)
	for i := range rects {
		for j := range rects {
			if i == j {
				continue
			}
			if dead := geom.DeadSpace(rects[i], rects[j]); dead > worst {
				worst = dead
				seed1, seed2 = i, j
			}
		}
	}

	group1 := []int{seed1}
	group2 := []int{seed2}
	rect1 := rects[seed1]
	rect2 := rects[seed2]

	assigned := bitset.New(uint(len(children)))
	assigned.Set(uint(seed1))
	assigned.Set(uint(seed2))
	remaining := len(children) - 2

	takeAll := func(group *[]int, rect *geom.Rect) {
		for i := range children {
			if assigned.Test(uint(i)) {
				continue
			}
			*group = append(*group, i)
			*rect = rect.Union(rects[i])
			assigned.Set(uint(i))
		}
		remaining = 0
	}

	for remaining > 0 {
		// Globally cheapest candidate/group assignment; on an
		// equal-enlargement tie between the groups the smaller group
		// rectangle wins.
		bestIdx := -1
		bestToGroup1 := false
		bestExpansion := math.Inf(1)
		for i := range rects {
			if assigned.Test(uint(i)) {
				continue
			}
			expansion1 := rect1.Enlargement(rects[i])
			expansion2 := rect2.Enlargement(rects[i])
			switch {
			case expansion1 < expansion2 && expansion1 < bestExpansion:
				bestIdx, bestToGroup1, bestExpansion = i, true, expansion1
			case expansion2 < expansion1 && expansion2 < bestExpansion:
				bestIdx, bestToGroup1, bestExpansion = i, false, expansion2
			case expansion1 == expansion2 && expansion1 < bestExpansion:
				bestIdx, bestToGroup1, bestExpansion = i, rect1.Area() < rect2.Area(), expansion1
			}
		}

		if bestToGroup1 {
			group1 = append(group1, bestIdx)
			rect1 = rect1.Union(rects[bestIdx])
		} else {
			group2 = append(group2, bestIdx)
			rect2 = rect2.Union(rects[bestIdx])
		}
		assigned.Set(uint(bestIdx))
		remaining--

		// Forced completion: a group at the minimum-fill boundary takes
		// every remaining candidate.
		if len(group1)+remaining == t.minNodeReferences {
			takeAll(&group1, &rect1)
		}
		if len(group2)+remaining == t.minNodeReferences {
			takeAll(&group2, &rect2)
		}
	}

	// Materialize: the original node keeps group 1 with a tightened
	// rectangle, the new sibling receives group 2.
	if err := t.store.SetRect(ctx, node, rect1); err != nil {
		return 0, err
	}
	for _, i := range group1 {
		if err := t.store.CreateEdge(ctx, node, children[i], et); err != nil {
			return 0, err
		}
	}

	sibling, err := t.store.CreateNode(ctx)
	if err != nil {
		return 0, err
	}
	if err := t.store.SetKind(ctx, sibling, kind); err != nil {
		return 0, err
	}
	if err := t.store.SetRect(ctx, sibling, rect2); err != nil {
		return 0, err
	}
	for _, i := range group2 {
		if err := t.store.CreateEdge(ctx, sibling, children[i], et); err != nil {
			return 0, err
		}
	}

	return sibling, nil
}

// createNewRoot replaces the root pointer after a root split. The old root
// and its new sibling become the two children of a fresh internal root.
func (t *Tree) createNewRoot(ctx context.Context, oldRoot, sibling graphstore.NodeID) error {
	newRoot, err := t.store.CreateNode(ctx)
	if err != nil {
		return err
	}
	if err := t.store.SetKind(ctx, newRoot, graphstore.KindInternal); err != nil {
		return err
	}

	if _, err := t.addChild(ctx, newRoot, graphstore.EdgeChild, oldRoot); err != nil {
		return err
	}
	if _, err := t.addChild(ctx, newRoot, graphstore.EdgeChild, sibling); err != nil {
		return err
	}

	if err := t.store.DeleteEdge(ctx, t.layer, oldRoot, graphstore.EdgeRoot); err != nil {
		return err
	}
	return t.store.CreateEdge(ctx, t.layer, newRoot, graphstore.EdgeRoot)
}
