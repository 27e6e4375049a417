package spatialgo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
	"github.com/hupe1980/spatialgo/rtree"
	"github.com/hupe1980/spatialgo/snapshot"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, 0, db.Len())

		_, err = db.BoundingBox(ctx)
		require.ErrorIs(t, err, rtree.ErrEmptyIndex)
	})

	t.Run("InvalidFanout", func(t *testing.T) {
		_, err := RTree[string]().
			MaxNodeReferences(4).
			MinNodeReferences(5).
			Build(ctx)

		var invalid *rtree.ErrInvalidFanout
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("ReopenExistingLayer", func(t *testing.T) {
		store := graphstore.NewMemoryStore()

		db, err := RTree[string]().
			MaxNodeReferences(8).
			MinNodeReferences(3).
			Store(store).
			Build(ctx)
		require.NoError(t, err)

		_, err = db.Insert(ctx, GeometryWithData[string]{
			Geometry: geom.FromRect(geom.NewRect(0, 0, 1, 1)),
			Data:     "a",
		})
		require.NoError(t, err)

		// Reattaching to the same layer finds the persisted tree; the
		// configured fanout loses against the persisted metadata.
		db2, err := RTree[string]().
			MaxNodeReferences(99).
			MinNodeReferences(1).
			Store(store).
			Layer(db.Layer()).
			Build(ctx)
		require.NoError(t, err)

		bbox, err := db2.BoundingBox(ctx)
		require.NoError(t, err)
		assert.Equal(t, geom.NewRect(0, 0, 1, 1), bbox)
	})
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAndGet", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		id, err := db.Insert(ctx, GeometryWithData[string]{
			Geometry: geom.FromRect(geom.NewRect(2, 2, 5, 5)),
			Data:     "parcel-7",
		})
		require.NoError(t, err)

		data, err := db.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "parcel-7", data)

		g, err := db.Geometry(id)
		require.NoError(t, err)
		assert.Equal(t, geom.NewRect(2, 2, 5, 5), g.Bounds())

		assert.Equal(t, 1, db.Len())
	})

	t.Run("GetUnknownID", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Get(12345)
		require.ErrorIs(t, err, ErrNotFound)

		_, err = db.Geometry(12345)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NilGeometry", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Insert(ctx, GeometryWithData[string]{Data: "orphan"})
		require.ErrorIs(t, err, ErrNilGeometry)
		assert.Equal(t, 0, db.Len())
	})

	t.Run("BoundingBoxGrows", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Insert(ctx, GeometryWithData[string]{
			Geometry: geom.FromRect(geom.NewRect(0, 0, 1, 1)),
			Data:     "a",
		})
		require.NoError(t, err)
		_, err = db.Insert(ctx, GeometryWithData[string]{
			Geometry: geom.FromRect(geom.NewRect(9, 9, 10, 10)),
			Data:     "b",
		})
		require.NoError(t, err)

		bbox, err := db.BoundingBox(ctx)
		require.NoError(t, err)
		assert.Equal(t, geom.NewRect(0, 0, 10, 10), bbox)
	})

	t.Run("StatsAndValidateUnderLoad", func(t *testing.T) {
		db, err := RTree[int]().
			MaxNodeReferences(4).
			MinNodeReferences(2).
			Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		for i := 0; i < 50; i++ {
			x := float64(i % 10)
			y := float64(i / 10)
			_, err := db.Insert(ctx, GeometryWithData[int]{
				Geometry: geom.FromRect(geom.NewRect(x, y, x+0.5, y+0.5)),
				Data:     i,
			})
			require.NoError(t, err)
		}

		require.NoError(t, db.Validate(ctx))

		stats, err := db.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, stats.EntryCount)
		assert.Greater(t, stats.Height, 1)
	})
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}
	db, err := RTree[string]().Metrics(metrics).Build(ctx)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Insert(ctx, GeometryWithData[string]{
		Geometry: geom.FromRect(geom.NewRect(0, 0, 1, 1)),
		Data:     "a",
	})
	require.NoError(t, err)

	_, err = db.Insert(ctx, GeometryWithData[string]{Data: "bad"})
	require.Error(t, err)

	_, err = db.Search(geom.NewRect(0, 0, 2, 2)).Execute(ctx)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchResults)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()

	newIndex := func(t *testing.T, blobs blobstore.Store) *Spatialgo[string] {
		t.Helper()
		db, err := RTree[string]().
			MaxNodeReferences(4).
			MinNodeReferences(2).
			BlobStore(blobs).
			Compression(snapshot.CompressionLZ4).
			Build(ctx)
		require.NoError(t, err)
		return db
	}

	t.Run("SaveAndLoadRoundtrip", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		db := newIndex(t, blobs)
		defer db.Close()

		ids := make([]EntryID, 0, 12)
		for i := 0; i < 12; i++ {
			x := float64(i % 4 * 3)
			y := float64(i / 4 * 3)
			id, err := db.Insert(ctx, GeometryWithData[string]{
				Geometry: geom.FromRect(geom.NewRect(x, y, x+2, y+2)),
				Data:     fmt.Sprintf("cell-%d", i),
			})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		// One non-rectangular shape to prove geometry survives.
		triangle, err := geom.NewPolygon([]geom.Point{{X: 20, Y: 20}, {X: 24, Y: 20}, {X: 20, Y: 24}})
		require.NoError(t, err)
		triID, err := db.Insert(ctx, GeometryWithData[string]{Geometry: triangle, Data: "triangle"})
		require.NoError(t, err)

		require.NoError(t, db.SaveSnapshot(ctx, "roundtrip"))

		restored, err := LoadSnapshot[string](ctx, "roundtrip", WithBlobStore(blobs))
		require.NoError(t, err)
		defer restored.Close()

		require.NoError(t, restored.Validate(ctx))
		assert.Equal(t, db.Len(), restored.Len())

		for i, id := range ids {
			data, err := restored.Get(id)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("cell-%d", i), data)
		}

		wantBBox, err := db.BoundingBox(ctx)
		require.NoError(t, err)
		gotBBox, err := restored.BoundingBox(ctx)
		require.NoError(t, err)
		assert.Equal(t, wantBBox, gotBBox)

		// A query overlapping only the triangle's empty corner must still
		// exclude it after the restore.
		hits, err := restored.Search(geom.NewRect(23, 23, 24, 24)).IDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, hits)

		hits, err = restored.Search(geom.NewRect(20, 20, 21, 21)).IDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []EntryID{triID}, hits)
	})

	t.Run("RestoredIndexAcceptsInserts", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		db := newIndex(t, blobs)
		defer db.Close()

		for i := 0; i < 9; i++ {
			x := float64(i * 2)
			_, err := db.Insert(ctx, GeometryWithData[string]{
				Geometry: geom.FromRect(geom.NewRect(x, 0, x+1, 1)),
				Data:     fmt.Sprintf("row-%d", i),
			})
			require.NoError(t, err)
		}
		require.NoError(t, db.SaveSnapshot(ctx, "live"))

		restored, err := LoadSnapshot[string](ctx, "live", WithBlobStore(blobs))
		require.NoError(t, err)
		defer restored.Close()

		for i := 0; i < 9; i++ {
			x := float64(i * 2)
			_, err := restored.Insert(ctx, GeometryWithData[string]{
				Geometry: geom.FromRect(geom.NewRect(x, 5, x+1, 6)),
				Data:     fmt.Sprintf("row2-%d", i),
			})
			require.NoError(t, err)
		}

		require.NoError(t, restored.Validate(ctx))
		assert.Equal(t, 18, restored.Len())

		n, err := restored.Search(geom.NewRect(-1, -1, 100, 100)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 18, n)
	})

	t.Run("NoBlobStore", func(t *testing.T) {
		db, err := RTree[string]().Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		require.ErrorIs(t, db.SaveSnapshot(ctx, "nowhere"), ErrNoBlobStore)

		_, err = LoadSnapshot[string](ctx, "nowhere")
		require.ErrorIs(t, err, ErrNoBlobStore)
	})

	t.Run("UnsupportedStore", func(t *testing.T) {
		// CachedStore hides the inner store's export capability.
		cached, err := graphstore.NewCachedStore(graphstore.NewMemoryStore())
		require.NoError(t, err)

		db, err := RTree[string]().
			Store(cached).
			BlobStore(blobstore.NewMemoryStore()).
			Build(ctx)
		require.NoError(t, err)
		defer db.Close()

		require.ErrorIs(t, db.SaveSnapshot(ctx, "cached"), ErrSnapshotUnsupported)
	})

	t.Run("MissingSnapshot", func(t *testing.T) {
		_, err := LoadSnapshot[string](ctx, "never-saved", WithBlobStore(blobstore.NewMemoryStore()))
		require.ErrorIs(t, err, ErrNotFound)
	})
}
