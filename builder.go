// Package spatialgo provides an embedded 2D spatial index for Go.
//
// This file implements the fluent builder API for creating and configuring
// Spatialgo instances. The builder is immutable - each method returns a new
// builder with the updated configuration.
package spatialgo

import (
	"context"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/graphstore"
	"github.com/hupe1980/spatialgo/rtree"
	"github.com/hupe1980/spatialgo/snapshot"
)

// RTree creates a new R-tree index builder.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents
// accidental state sharing.
//
// Example:
//
//	db, err := spatialgo.RTree[string]().
//	    MaxNodeReferences(64).
//	    MinNodeReferences(26).
//	    Build(ctx)
func RTree[T any]() RTreeBuilder[T] {
	return RTreeBuilder[T]{
		maxNodeReferences: rtree.DefaultOptions.MaxNodeReferences,
		minNodeReferences: rtree.DefaultOptions.MinNodeReferences,
	}
}

// RTreeBuilder is an immutable fluent builder for creating Spatialgo
// instances. Each method returns a new builder with the updated
// configuration.
type RTreeBuilder[T any] struct {
	maxNodeReferences int
	minNodeReferences int
	store             graphstore.Store
	layer             *graphstore.NodeID
	optFns            []Option
}

// MaxNodeReferences sets the fanout ceiling: a tree node holding this
// many children overflows on the next insertion and is split.
// Default: 100.
func (b RTreeBuilder[T]) MaxNodeReferences(n int) RTreeBuilder[T] {
	b.maxNodeReferences = n
	return b
}

// MinNodeReferences sets the fanout floor every non-root node keeps
// after a split. Default: 40.
//
// Values above half of MaxNodeReferences are accepted but shift split
// distributions toward forced completion.
func (b RTreeBuilder[T]) MinNodeReferences(n int) RTreeBuilder[T] {
	b.minNodeReferences = n
	return b
}

// Store sets the graph store backing the tree. Default: a fresh
// in-memory store.
func (b RTreeBuilder[T]) Store(s graphstore.Store) RTreeBuilder[T] {
	b.store = s
	return b
}

// Layer attaches the builder to an existing tree identity node in the
// store instead of creating a new one. Persisted fanout parameters of an
// existing tree win over the builder's values.
func (b RTreeBuilder[T]) Layer(layer EntryID) RTreeBuilder[T] {
	b.layer = &layer
	return b
}

// Codec sets the codec for payload and snapshot serialization.
func (b RTreeBuilder[T]) Codec(c codec.Codec) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithCodec(c))
	return b
}

// Logger sets the structured logger for operation tracing.
func (b RTreeBuilder[T]) Logger(l *Logger) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithLogger(l))
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b RTreeBuilder[T]) Metrics(mc MetricsCollector) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithMetricsCollector(mc))
	return b
}

// BlobStore sets the blob store snapshots are written to.
func (b RTreeBuilder[T]) BlobStore(s blobstore.Store) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithBlobStore(s))
	return b
}

// Compression sets the compression applied to snapshot sections.
func (b RTreeBuilder[T]) Compression(c snapshot.Compression) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithCompression(c))
	return b
}

// Options appends raw constructor options. Useful when builder shorthand
// methods do not cover an option.
func (b RTreeBuilder[T]) Options(optFns ...Option) RTreeBuilder[T] {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], optFns...)
	return b
}

// Build creates the Spatialgo instance.
func (b RTreeBuilder[T]) Build(ctx context.Context) (*Spatialgo[T], error) {
	store := b.store
	if store == nil {
		store = graphstore.NewMemoryStore()
	}

	var layer graphstore.NodeID
	if b.layer != nil {
		layer = *b.layer
	} else {
		var err error
		layer, err = store.CreateNode(ctx)
		if err != nil {
			return nil, translateError(err)
		}
	}

	fanout := rtree.Options{
		MaxNodeReferences: b.maxNodeReferences,
		MinNodeReferences: b.minNodeReferences,
	}
	return newSpatialgo[T](ctx, store, layer, fanout, applyOptions(b.optFns))
}
