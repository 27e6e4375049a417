// Package geom provides the axis-aligned rectangle arithmetic and exact
// geometry primitives used by the R-tree index.
//
// Rect is the minimum bounding rectangle (MBR) type all tree decisions are
// made on; Geometry is the contract for exact shape-vs-shape intersection
// tests performed on leaf candidates.
package geom

// Rect is an axis-aligned rectangle in two dimensions.
//
// A Rect is valid when MinX <= MaxX and MinY <= MaxY. Degenerate rectangles
// (zero width and/or height) are valid and behave as points or segments.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewRect returns the rectangle spanning the two corner points, normalizing
// the coordinate order so the result is always valid.
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rect{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns the extent of the rectangle along the x axis.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the extent of the rectangle along the y axis.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns width times height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

// Enlargement returns the area growth required for r to also cover o.
// It is zero when r already contains o.
func (r Rect) Enlargement(o Rect) float64 {
	return r.Union(o).Area() - r.Area()
}

// Intersects reports whether r and o share at least one point.
// Touching edges count as intersecting.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX &&
		r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

// Contains reports whether o lies entirely within r, boundaries included.
func (r Rect) Contains(o Rect) bool {
	return r.MinX <= o.MinX && o.MaxX <= r.MaxX &&
		r.MinY <= o.MinY && o.MaxY <= r.MaxY
}

// ContainsPoint reports whether the point (x, y) lies within r,
// boundaries included.
func (r Rect) ContainsPoint(x, y float64) bool {
	return r.MinX <= x && x <= r.MaxX && r.MinY <= y && y <= r.MaxY
}

// DeadSpace returns the area of the union of a and b minus the areas of a
// and b themselves: the space wasted by grouping the two rectangles
// together. It is the seed-selection measure of the quadratic split and may
// be negative for overlapping rectangles.
func DeadSpace(a, b Rect) float64 {
	return a.Union(b).Area() - a.Area() - b.Area()
}
