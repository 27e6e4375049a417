package graphstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/hupe1980/spatialgo/geom"
)

// CachedStore decorates a Store with a read-through rectangle cache.
//
// Rectangle reads dominate every tree operation (descent, split and search
// all compare rectangles), so for stores with non-trivial read cost a small
// cache in front of Rect pays for itself quickly. Writes go straight
// through and invalidate the cached value.
type CachedStore struct {
	Store
	rects *ristretto.Cache[uint64, geom.Rect]
}

// CachedStoreOptions configures a CachedStore.
type CachedStoreOptions struct {
	// MaxCost is the cache capacity in cached rectangles.
	MaxCost int64

	// NumCounters is the number of keys tracked for admission. Rule of
	// thumb: 10x MaxCost.
	NumCounters int64
}

// DefaultCachedStoreOptions holds the defaults used by NewCachedStore.
var DefaultCachedStoreOptions = CachedStoreOptions{
	MaxCost:     1 << 16,
	NumCounters: 10 * (1 << 16),
}

// NewCachedStore wraps the given store with a rectangle cache.
func NewCachedStore(store Store, optFns ...func(o *CachedStoreOptions)) (*CachedStore, error) {
	opts := DefaultCachedStoreOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	rects, err := ristretto.NewCache(&ristretto.Config[uint64, geom.Rect]{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: create rect cache: %w", err)
	}

	return &CachedStore{Store: store, rects: rects}, nil
}

// Rect returns the node's bounding rectangle, serving repeated reads from
// the cache.
func (s *CachedStore) Rect(ctx context.Context, id NodeID) (geom.Rect, bool, error) {
	if r, ok := s.rects.Get(uint64(id)); ok {
		return r, true, nil
	}

	r, ok, err := s.Store.Rect(ctx, id)
	if err != nil || !ok {
		return r, ok, err
	}
	s.rects.Set(uint64(id), r, 1)
	return r, true, nil
}

// SetRect writes through to the underlying store and invalidates the
// cached value. Invalidation is flushed synchronously: a stale rectangle
// would corrupt descent and split decisions, so the next read must come
// from the authoritative store.
func (s *CachedStore) SetRect(ctx context.Context, id NodeID, r geom.Rect) error {
	if err := s.Store.SetRect(ctx, id, r); err != nil {
		return err
	}
	s.rects.Del(uint64(id))
	s.rects.Wait()
	return nil
}

// Wait blocks until pending cache writes are applied. Intended for tests.
func (s *CachedStore) Wait() { s.rects.Wait() }

// Close releases cache resources. The underlying store is not closed.
func (s *CachedStore) Close() { s.rects.Close() }
