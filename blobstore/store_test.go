package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) Store{
		"Memory": func(t *testing.T) Store { return NewMemoryStore() },
		"Local": func(t *testing.T) Store {
			s, err := NewLocalStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("PutGet", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snap/latest", []byte("payload")))

				data, err := s.Get(ctx, "snap/latest")
				require.NoError(t, err)
				assert.Equal(t, []byte("payload"), data)
			})

			t.Run("Overwrite", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snap", []byte("v1")))
				require.NoError(t, s.Put(ctx, "snap", []byte("v2")))

				data, err := s.Get(ctx, "snap")
				require.NoError(t, err)
				assert.Equal(t, []byte("v2"), data)
			})

			t.Run("NotFound", func(t *testing.T) {
				s := newStore(t)
				_, err := s.Get(ctx, "missing")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snap", []byte("x")))
				require.NoError(t, s.Delete(ctx, "snap"))
				_, err := s.Get(ctx, "snap")
				require.ErrorIs(t, err, ErrNotFound)

				assert.NoError(t, s.Delete(ctx, "snap"), "double delete is not an error")
			})
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("immutable")
	require.NoError(t, s.Put(ctx, "b", data))
	data[0] = 'X'

	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), got)
}
