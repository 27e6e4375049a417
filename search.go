// Package spatialgo provides an embedded 2D spatial index for Go.
//
// This file implements a fluent search API for querying Spatialgo instances.
package spatialgo

import (
	"context"
	"time"

	"github.com/hupe1980/spatialgo/geom"
)

// SearchResult represents a search result.
type SearchResult[T any] struct {
	// ID is the handle of the matching entry.
	ID EntryID

	// Bounds is the bounding rectangle of the matching entry.
	Bounds geom.Rect

	// Data is the associated data of the search result.
	Data T
}

// Search creates a new fluent search builder for the given query
// rectangle. The search returns every entry whose exact geometry
// intersects the query.
//
// Example:
//
//	results, err := db.Search(geom.NewRect(0, 0, 50, 50)).
//	    Limit(100).
//	    Execute(ctx)
func (sg *Spatialgo[T]) Search(query geom.Rect) *SearchBuilder[T] {
	return &SearchBuilder[T]{
		sg:    sg,
		query: query,
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder[T any] struct {
	sg    *Spatialgo[T]
	query geom.Rect
	limit int
}

// Limit caps the number of results returned. Results follow the
// deterministic traversal order of the tree, so the cap keeps a stable
// prefix. Zero means unlimited (the default).
func (sb *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	sb.limit = n
	return sb
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder[T]) Execute(ctx context.Context) ([]SearchResult[T], error) {
	start := time.Now()
	sg := sb.sg

	sg.mu.RLock()
	results, err := sb.execute(ctx)
	sg.mu.RUnlock()

	err = translateError(err)
	sg.metrics.RecordSearch(len(results), time.Since(start), err)
	sg.logger.LogSearch(ctx, sb.query, len(results), err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (sb *SearchBuilder[T]) execute(ctx context.Context) ([]SearchResult[T], error) {
	sg := sb.sg

	ids, err := sg.tree.Search(ctx, sb.query, sg.entries)
	if err != nil {
		return nil, err
	}
	if sb.limit > 0 && len(ids) > sb.limit {
		ids = ids[:sb.limit]
	}

	results := make([]SearchResult[T], 0, len(ids))
	for _, id := range ids {
		bounds, ok, err := sg.store.Rect(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		data, _ := sg.entries.payload(id)
		results = append(results, SearchResult[T]{
			ID:     id,
			Bounds: bounds,
			Data:   data,
		})
	}
	return results, nil
}

// IDs runs the search and returns only the matching entry handles.
func (sb *SearchBuilder[T]) IDs(ctx context.Context) ([]EntryID, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]EntryID, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

// First returns only the first match in traversal order, or ErrNotFound
// if nothing matches.
func (sb *SearchBuilder[T]) First(ctx context.Context) (SearchResult[T], error) {
	sb.limit = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return SearchResult[T]{}, err
	}
	if len(results) == 0 {
		return SearchResult[T]{}, ErrNotFound
	}
	return results[0], nil
}

// Count executes the search and returns the number of results.
func (sb *SearchBuilder[T]) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists checks if at least one result matches the search.
func (sb *SearchBuilder[T]) Exists(ctx context.Context) (bool, error) {
	sb.limit = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
