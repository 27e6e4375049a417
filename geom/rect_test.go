package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect(t *testing.T) {
	t.Run("NewRectNormalizes", func(t *testing.T) {
		r := NewRect(4, 3, 1, 0)
		assert.Equal(t, Rect{MinX: 1, MinY: 0, MaxX: 4, MaxY: 3}, r)
	})

	t.Run("Area", func(t *testing.T) {
		assert.Equal(t, 6.0, NewRect(0, 0, 2, 3).Area())
		assert.Equal(t, 0.0, NewRect(1, 1, 1, 5).Area())
	})

	t.Run("Union", func(t *testing.T) {
		a := NewRect(0, 0, 1, 1)
		b := NewRect(2, 3, 4, 5)
		u := a.Union(b)
		assert.Equal(t, Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 5}, u)
		assert.Equal(t, u, b.Union(a), "union must be commutative")
	})

	t.Run("Enlargement", func(t *testing.T) {
		a := NewRect(0, 0, 2, 2)

		// Contained rectangle requires no growth.
		assert.Equal(t, 0.0, a.Enlargement(NewRect(0.5, 0.5, 1, 1)))

		// Growing to cover (0,0)-(4,2) adds 2x2=4 of area.
		assert.Equal(t, 4.0, a.Enlargement(NewRect(3, 0, 4, 2)))
	})

	t.Run("Intersects", func(t *testing.T) {
		a := NewRect(0, 0, 2, 2)
		assert.True(t, a.Intersects(NewRect(1, 1, 3, 3)))
		assert.True(t, a.Intersects(NewRect(2, 0, 3, 1)), "touching edges intersect")
		assert.True(t, a.Intersects(a))
		assert.False(t, a.Intersects(NewRect(3, 3, 4, 4)))
		assert.False(t, a.Intersects(NewRect(0, 2.1, 2, 3)))
	})

	t.Run("Contains", func(t *testing.T) {
		a := NewRect(0, 0, 4, 4)
		assert.True(t, a.Contains(NewRect(1, 1, 2, 2)))
		assert.True(t, a.Contains(a), "a rectangle contains itself")
		assert.False(t, a.Contains(NewRect(3, 3, 5, 5)))
	})

	t.Run("DeadSpace", func(t *testing.T) {
		// Two distant unit squares: union is 5x1=5, dead space 5-1-1=3.
		a := NewRect(0, 0, 1, 1)
		b := NewRect(4, 0, 5, 1)
		assert.Equal(t, 3.0, DeadSpace(a, b))

		// Nested rectangles waste negative space.
		c := NewRect(0, 0, 1, 0.5)
		assert.Less(t, DeadSpace(a, c), 0.0)
	})
}
