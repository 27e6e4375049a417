package rtree

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver resolves entry geometries from a map and counts how often
// the exact-geometry path is taken.
type mapResolver struct {
	geoms map[graphstore.NodeID]geom.Geometry
	calls int
}

func newMapResolver() *mapResolver {
	return &mapResolver{geoms: make(map[graphstore.NodeID]geom.Geometry)}
}

func (r *mapResolver) Geometry(_ context.Context, id graphstore.NodeID) (geom.Geometry, error) {
	r.calls++
	g, ok := r.geoms[id]
	if !ok {
		return nil, fmt.Errorf("no geometry for entry %d", id)
	}
	return g, nil
}

// leafCountingStore counts leaf entry enumerations, to prove pruning.
type leafCountingStore struct {
	graphstore.Store
	leafVisits int
}

func (s *leafCountingStore) Outgoing(ctx context.Context, from graphstore.NodeID, t graphstore.EdgeType) ([]graphstore.NodeID, error) {
	if t == graphstore.EdgeEntry {
		s.leafVisits++
	}
	return s.Store.Outgoing(ctx, from, t)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	// insertRect indexes a rectangle-shaped geometry and returns its id.
	insertRect := func(t *testing.T, s graphstore.Store, tree *Tree, resolver *mapResolver, r geom.Rect) graphstore.NodeID {
		t.Helper()
		e := newEntry(t, ctx, s, r)
		resolver.geoms[e] = geom.FromRect(r)
		require.NoError(t, tree.Insert(ctx, e))
		return e
	}

	t.Run("EmptyTree", func(t *testing.T) {
		s, layer := newLayer(t, ctx)
		tree, err := Open(ctx, s, layer)
		require.NoError(t, err)

		got, err := tree.Search(ctx, geom.NewRect(0, 0, 10, 10), newMapResolver())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("MatchesBruteForce", func(t *testing.T) {
		s, layer := newLayer(t, ctx)
		tree, err := Open(ctx, s, layer, func(o *Options) {
			o.MaxNodeReferences = 4
			o.MinNodeReferences = 2
		})
		require.NoError(t, err)

		resolver := newMapResolver()
		rects := make(map[graphstore.NodeID]geom.Rect)
		for i := 0; i < 30; i++ {
			r := unitRect(float64(i%10)*2, float64(i/10)*2)
			rects[insertRect(t, s, tree, resolver, r)] = r
		}

		for _, query := range []geom.Rect{
			geom.NewRect(0, 0, 5, 5),
			geom.NewRect(3, 3, 4, 4),
			geom.NewRect(-10, -10, 50, 50),
			geom.NewRect(100, 100, 110, 110),
		} {
			got, err := tree.Search(ctx, query, resolver)
			require.NoError(t, err)

			want := map[graphstore.NodeID]bool{}
			for id, r := range rects {
				if query.Intersects(r) {
					want[id] = true
				}
			}

			assert.Len(t, got, len(want), "query %+v", query)
			for _, id := range got {
				assert.True(t, want[id], "false positive %d for query %+v", id, query)
			}
		}
	})

	t.Run("ContainmentSkipsExactGeometry", func(t *testing.T) {
		s, layer := newLayer(t, ctx)
		tree, err := Open(ctx, s, layer)
		require.NoError(t, err)

		resolver := newMapResolver()
		insertRect(t, s, tree, resolver, geom.NewRect(2, 2, 3, 3))

		// Query fully containing the entry's rectangle: the cheap
		// containment path accepts without resolving the geometry.
		got, err := tree.Search(ctx, geom.NewRect(0, 0, 10, 10), resolver)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Zero(t, resolver.calls, "containment accept must not touch exact geometry")
	})

	t.Run("ExactGeometryRejectsBoxOnlyOverlap", func(t *testing.T) {
		s, layer := newLayer(t, ctx)
		tree, err := Open(ctx, s, layer)
		require.NoError(t, err)

		// A triangle hugging the lower-left of its bounding box.
		tri, err := geom.NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}})
		require.NoError(t, err)

		resolver := newMapResolver()
		e := newEntry(t, ctx, s, tri.Bounds())
		resolver.geoms[e] = tri
		require.NoError(t, tree.Insert(ctx, e))

		// Overlaps the bounding box near the empty upper-right corner
		// but misses the triangle itself.
		got, err := tree.Search(ctx, geom.NewRect(3.5, 3.5, 6, 6), resolver)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 1, resolver.calls, "overlapping rectangle must trigger the exact test")

		// A query clipping the hypotenuse side does intersect.
		got, err = tree.Search(ctx, geom.NewRect(-1, -1, 1, 1), resolver)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("DisjointQueryVisitsNoLeaf", func(t *testing.T) {
		counting := &leafCountingStore{Store: graphstore.NewMemoryStore()}
		layer, err := counting.CreateNode(ctx)
		require.NoError(t, err)

		tree, err := Open(ctx, counting, layer, func(o *Options) {
			o.MaxNodeReferences = 4
			o.MinNodeReferences = 2
		})
		require.NoError(t, err)

		resolver := newMapResolver()
		for i := 0; i < 10; i++ {
			insertRect(t, counting, tree, resolver, unitRect(float64(i), 0))
		}

		counting.leafVisits = 0
		got, err := tree.Search(ctx, geom.NewRect(100, 100, 101, 101), resolver)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, counting.leafVisits, "disjoint query must be pruned at the root")
	})

	t.Run("NoDuplicates", func(t *testing.T) {
		s, layer := newLayer(t, ctx)
		tree, err := Open(ctx, s, layer, func(o *Options) {
			o.MaxNodeReferences = 4
			o.MinNodeReferences = 2
		})
		require.NoError(t, err)

		resolver := newMapResolver()
		for i := 0; i < 40; i++ {
			insertRect(t, s, tree, resolver, unitRect(float64(i%5), float64(i/5)))
		}

		got, err := tree.Search(ctx, geom.NewRect(-1, -1, 100, 100), resolver)
		require.NoError(t, err)

		unique := map[graphstore.NodeID]bool{}
		for _, id := range got {
			assert.False(t, unique[id], "entry %d returned twice", id)
			unique[id] = true
		}
		assert.Len(t, unique, 40)
	})
}
