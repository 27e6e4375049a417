package rtree

import (
	"context"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
)

// Search returns every entry whose exact geometry intersects the query
// rectangle. It is read-only and never mutates the tree.
//
// Subtrees whose rectangle is disjoint from the query are pruned without
// descending. At the leaves a two-tier test keeps exact geometry work off
// the hot path: entries whose rectangle is fully contained in the query
// are accepted immediately; only entries whose rectangle merely overlaps
// the query are resolved and tested shape-against-shape.
//
// Result order follows the deterministic traversal order of the store; no
// entry can appear twice because each entry has exactly one leaf parent.
func (t *Tree) Search(ctx context.Context, query geom.Rect, resolver GeometryResolver) ([]graphstore.NodeID, error) {
	root, err := t.root(ctx)
	if err != nil {
		return nil, err
	}

	// The query geometry is materialized once per search.
	queryGeom := geom.FromRect(query)

	var result []graphstore.NodeID
	if err := t.search(ctx, root, query, queryGeom, resolver, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Tree) search(ctx context.Context, node graphstore.NodeID, query geom.Rect, queryGeom geom.Geometry, resolver GeometryResolver, result *[]graphstore.NodeID) error {
	nodeRect, ok, err := t.store.Rect(ctx, node)
	if err != nil {
		return err
	}
	if !ok {
		// A fresh root has no rectangle until the first insert.
		return nil
	}
	if !query.Intersects(nodeRect) {
		return nil
	}

	kind, err := t.store.Kind(ctx, node)
	if err != nil {
		return err
	}

	if kind == graphstore.KindInternal {
		children, err := t.store.Outgoing(ctx, node, graphstore.EdgeChild)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := t.search(ctx, child, query, queryGeom, resolver, result); err != nil {
				return err
			}
		}
		return nil
	}

	entries, err := t.store.Outgoing(ctx, node, graphstore.EdgeEntry)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		entryRect, ok, err := t.store.Rect(ctx, entry)
		if err != nil {
			return err
		}
		if !ok {
			return &ErrCorruptedIndex{Node: entry, Reason: "entry has no bounding rectangle"}
		}

		if query.Contains(entryRect) {
			// Contained rectangle: the exact geometry cannot escape the
			// query, skip the expensive test.
			*result = append(*result, entry)
			continue
		}
		if !query.Intersects(entryRect) {
			continue
		}

		g, err := resolver.Geometry(ctx, entry)
		if err != nil {
			return err
		}
		if geom.Intersects(queryGeom, g) {
			*result = append(*result, entry)
		}
	}
	return nil
}
