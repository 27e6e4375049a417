// Package spatialgo provides an embedded 2D spatial index for Go.
//
// Spatialgo indexes geometries in a dynamically balanced R-tree backed by
// a pluggable graph store, with production-ready features including:
//
//   - Guttman-style R-tree with quadratic split and minimum-fill guarantees
//   - Type-safe fluent builder: RTree[T]()
//   - Two-tier search: cheap rectangle tests first, exact geometry only
//     for boundary candidates
//   - Deterministic tree construction (same inserts, same tree)
//   - Self-describing snapshots with pluggable codecs and compression
//   - Blob storage backends: local filesystem, in-memory, S3, MinIO
//   - Structured logging (slog) and pluggable metrics collection
//
// # Quick Start (Fluent API)
//
// Create an index with the type-safe builder:
//
//	ctx := context.Background()
//	db, err := spatialgo.RTree[string]().
//	    MaxNodeReferences(64).
//	    MinNodeReferences(26).
//	    Build(ctx)
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
// Insert geometries with payloads:
//
//	id, err := db.Insert(ctx, spatialgo.GeometryWithData[string]{
//	    Geometry: geom.FromRect(geom.NewRect(0, 0, 10, 10)),
//	    Data:     "parcel-7",
//	})
//
// Search with the fluent API:
//
//	results, err := db.Search(geom.NewRect(5, 5, 20, 20)).
//	    Limit(100).
//	    Execute(ctx)
//
// Save and restore snapshots:
//
//	_ = db.SaveSnapshot(ctx, "city-parcels")
//	db2, err := spatialgo.LoadSnapshot[string](ctx, "city-parcels",
//	    spatialgo.WithBlobStore(blobs))
//
// # Concurrency
//
// A Spatialgo instance serializes writes internally and allows concurrent
// reads. One instance owns its graph store; do not share a store between
// instances.
package spatialgo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
	"github.com/hupe1980/spatialgo/rtree"
	"github.com/hupe1980/spatialgo/snapshot"
)

// EntryID identifies one indexed entry. It is the entry's node handle in
// the underlying graph store.
type EntryID = graphstore.NodeID

// GeometryWithData represents a geometry along with associated data.
type GeometryWithData[T any] struct {
	Geometry geom.Geometry
	Data     T
}

// Spatialgo is an embedded spatial index with payload storage, snapshot
// persistence and operation instrumentation.
type Spatialgo[T any] struct {
	mu          sync.RWMutex // one writer, concurrent readers
	store       graphstore.Store
	tree        *rtree.Tree
	entries     *entryStore[T]
	codec       codec.Codec
	blobStore   blobstore.Store
	compression snapshot.Compression
	metrics     MetricsCollector
	logger      *Logger
}

// newSpatialgo is the internal constructor used by the builder and the
// snapshot loader.
func newSpatialgo[T any](ctx context.Context, store graphstore.Store, layer graphstore.NodeID, fanout rtree.Options, opts options) (*Spatialgo[T], error) {
	c := opts.codec
	if c == nil {
		c = codec.Default
	}

	tree, err := rtree.Open(ctx, store, layer, func(o *rtree.Options) {
		*o = fanout
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Spatialgo[T]{
		store:       store,
		tree:        tree,
		entries:     newEntryStore[T](),
		codec:       c,
		blobStore:   opts.blobStore,
		compression: opts.compression,
		metrics:     opts.metricsCollector,
		logger:      opts.logger.WithLayer(layer),
	}, nil
}

// Insert adds a geometry along with associated data to the index and
// returns the handle of the new entry.
func (sg *Spatialgo[T]) Insert(ctx context.Context, item GeometryWithData[T]) (EntryID, error) {
	start := time.Now()

	if item.Geometry == nil {
		err := ErrNilGeometry
		sg.metrics.RecordInsert(time.Since(start), err)
		sg.logger.LogInsert(ctx, 0, err)
		return 0, err
	}

	sg.mu.Lock()
	id, err := sg.insert(ctx, item)
	sg.mu.Unlock()

	err = translateError(err)
	sg.metrics.RecordInsert(time.Since(start), err)
	sg.logger.LogInsert(ctx, id, err)
	return id, err
}

func (sg *Spatialgo[T]) insert(ctx context.Context, item GeometryWithData[T]) (EntryID, error) {
	id, err := sg.store.CreateNode(ctx)
	if err != nil {
		return 0, err
	}
	if err := sg.store.SetRect(ctx, id, item.Geometry.Bounds()); err != nil {
		return 0, err
	}
	if err := sg.tree.Insert(ctx, id); err != nil {
		return 0, err
	}
	sg.entries.put(id, item.Geometry, item.Data)
	return id, nil
}

// Get retrieves the payload of an entry by ID.
func (sg *Spatialgo[T]) Get(id EntryID) (T, error) {
	data, ok := sg.entries.payload(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return data, nil
}

// Geometry retrieves the geometry of an entry by ID.
func (sg *Spatialgo[T]) Geometry(id EntryID) (geom.Geometry, error) {
	g, ok := sg.entries.geometry(id)
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// Len returns the number of indexed entries.
func (sg *Spatialgo[T]) Len() int {
	return sg.entries.len()
}

// BoundingBox returns the rectangle covering every indexed entry, or
// rtree.ErrEmptyIndex when nothing has been inserted yet.
func (sg *Spatialgo[T]) BoundingBox(ctx context.Context) (geom.Rect, error) {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	r, err := sg.tree.BoundingBox(ctx)
	return r, translateError(err)
}

// Stats returns the shape of the underlying tree.
func (sg *Spatialgo[T]) Stats(ctx context.Context) (rtree.Stats, error) {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	s, err := sg.tree.Stats(ctx)
	return s, translateError(err)
}

// Validate checks the structural invariants of the underlying tree.
// Intended for tests and debugging; cost is linear in index size.
func (sg *Spatialgo[T]) Validate(ctx context.Context) error {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	return translateError(sg.tree.Validate(ctx))
}

// Layer returns the tree identity node within the graph store.
func (sg *Spatialgo[T]) Layer() EntryID {
	return sg.tree.Layer()
}

// Close releases resources held by the graph store, if any.
func (sg *Spatialgo[T]) Close() error {
	type closer interface{ Close() }
	if c, ok := sg.store.(closer); ok {
		c.Close()
	}
	return nil
}

// entryStore holds the exact geometries and payloads of indexed entries.
// The tree itself only ever sees bounding rectangles; the search engine
// resolves boundary candidates through this store.
type entryStore[T any] struct {
	mu         sync.RWMutex
	geometries map[graphstore.NodeID]geom.Geometry
	payloads   map[graphstore.NodeID]T
}

func newEntryStore[T any]() *entryStore[T] {
	return &entryStore[T]{
		geometries: make(map[graphstore.NodeID]geom.Geometry),
		payloads:   make(map[graphstore.NodeID]T),
	}
}

func (s *entryStore[T]) put(id graphstore.NodeID, g geom.Geometry, data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geometries[id] = g
	s.payloads[id] = data
}

func (s *entryStore[T]) payload(id graphstore.NodeID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.payloads[id]
	return data, ok
}

func (s *entryStore[T]) geometry(id graphstore.NodeID) (geom.Geometry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.geometries[id]
	return g, ok
}

func (s *entryStore[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// ids returns all entry handles in ascending order.
func (s *entryStore[T]) ids() []graphstore.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graphstore.NodeID, 0, len(s.payloads))
	for id := range s.payloads {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Geometry implements rtree.GeometryResolver.
func (s *entryStore[T]) Geometry(_ context.Context, id graphstore.NodeID) (geom.Geometry, error) {
	g, ok := s.geometry(id)
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}
