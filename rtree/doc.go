// Package rtree implements a dynamic R-tree spatial index on top of a
// graphstore.Store.
//
// The tree organizes geometry entries by their bounding rectangles. Inserts
// descend via a two-phase subtree selection (containment first, then
// minimum enlargement), resolve node overflow with a quadratic split, and
// maintain tight bounding rectangles bottom-up with expand-only,
// short-circuiting propagation. Searches prune whole subtrees on rectangle
// disjointness and only run exact geometry intersection on leaf candidates
// whose rectangles genuinely overlap the query.
//
// The tree is single-writer: Insert must not run concurrently with itself
// or with Search on the same tree without external serialization.
package rtree
