package graphstore

import (
	"context"
	"testing"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts Rect reads hitting the underlying store.
type countingStore struct {
	Store
	rectReads int
}

func (s *countingStore) Rect(ctx context.Context, id NodeID) (geom.Rect, bool, error) {
	s.rectReads++
	return s.Store.Rect(ctx, id)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("ReadThrough", func(t *testing.T) {
		inner := &countingStore{Store: NewMemoryStore()}
		cs, err := NewCachedStore(inner)
		require.NoError(t, err)
		defer cs.Close()

		id, _ := cs.CreateNode(ctx)
		r := geom.NewRect(0, 0, 1, 1)
		require.NoError(t, cs.SetRect(ctx, id, r))

		got, ok, err := cs.Rect(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, r, got)
		assert.Equal(t, 1, inner.rectReads)

		cs.Wait()

		// Second read may be served from cache; it must never be stale.
		got, ok, err = cs.Rect(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, r, got)
		assert.LessOrEqual(t, inner.rectReads, 2)
	})

	t.Run("WriteInvalidates", func(t *testing.T) {
		inner := &countingStore{Store: NewMemoryStore()}
		cs, err := NewCachedStore(inner)
		require.NoError(t, err)
		defer cs.Close()

		id, _ := cs.CreateNode(ctx)
		require.NoError(t, cs.SetRect(ctx, id, geom.NewRect(0, 0, 1, 1)))

		_, _, err = cs.Rect(ctx, id)
		require.NoError(t, err)
		cs.Wait()

		updated := geom.NewRect(0, 0, 9, 9)
		require.NoError(t, cs.SetRect(ctx, id, updated))

		got, ok, err := cs.Rect(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, updated, got, "read after write must see the new rectangle")
	})

	t.Run("MissingRect", func(t *testing.T) {
		cs, err := NewCachedStore(NewMemoryStore())
		require.NoError(t, err)
		defer cs.Close()

		id, _ := cs.CreateNode(ctx)
		_, ok, err := cs.Rect(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
