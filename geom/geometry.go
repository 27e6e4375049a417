package geom

import (
	"errors"
	"fmt"
)

// ErrDegeneratePolygon is returned when a polygon has fewer than three
// vertices.
var ErrDegeneratePolygon = errors.New("polygon requires at least 3 vertices")

// Point is a location in two dimensions.
type Point struct {
	X float64
	Y float64
}

// Geometry is the exact-shape contract consumed by the search engine.
//
// The tree makes all routing decisions on bounding rectangles; only leaf
// candidates whose rectangle genuinely overlaps the query are subjected to
// an exact Geometry-vs-Geometry intersection test.
type Geometry interface {
	// Bounds returns the minimum bounding rectangle of the shape.
	Bounds() Rect

	// Exterior returns the vertices of the shape's exterior ring in order.
	// The ring is implicitly closed: the last vertex connects back to the
	// first.
	Exterior() []Point
}

// Polygon is a simple polygon defined by its exterior ring.
type Polygon struct {
	ring   []Point
	bounds Rect
}

// NewPolygon creates a polygon from the given exterior ring. The ring must
// contain at least three vertices and must not repeat the first vertex at
// the end (the closing edge is implicit).
func NewPolygon(ring []Point) (*Polygon, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDegeneratePolygon, len(ring))
	}

	vertices := make([]Point, len(ring))
	copy(vertices, ring)

	bounds := Rect{MinX: ring[0].X, MinY: ring[0].Y, MaxX: ring[0].X, MaxY: ring[0].Y}
	for _, p := range ring[1:] {
		bounds.MinX = min(bounds.MinX, p.X)
		bounds.MinY = min(bounds.MinY, p.Y)
		bounds.MaxX = max(bounds.MaxX, p.X)
		bounds.MaxY = max(bounds.MaxY, p.Y)
	}

	return &Polygon{ring: vertices, bounds: bounds}, nil
}

// FromRect converts a rectangle into its polygon representation.
func FromRect(r Rect) *Polygon {
	return &Polygon{
		ring: []Point{
			{X: r.MinX, Y: r.MinY},
			{X: r.MaxX, Y: r.MinY},
			{X: r.MaxX, Y: r.MaxY},
			{X: r.MinX, Y: r.MaxY},
		},
		bounds: r,
	}
}

// Bounds returns the minimum bounding rectangle of the polygon.
func (p *Polygon) Bounds() Rect { return p.bounds }

// Exterior returns the exterior ring of the polygon.
func (p *Polygon) Exterior() []Point { return p.ring }

// Intersects reports whether the two geometries share at least one point.
//
// The test is exact for simple polygons: it checks edge-edge crossings and
// mutual containment, after a cheap bounding-rectangle rejection.
func Intersects(a, b Geometry) bool {
	if !a.Bounds().Intersects(b.Bounds()) {
		return false
	}

	ringA := a.Exterior()
	ringB := b.Exterior()

	for i := range ringA {
		a1 := ringA[i]
		a2 := ringA[(i+1)%len(ringA)]
		for j := range ringB {
			if segmentsIntersect(a1, a2, ringB[j], ringB[(j+1)%len(ringB)]) {
				return true
			}
		}
	}

	// No edge crossings: one shape may still contain the other entirely.
	if len(ringA) > 0 && pointInRing(ringA[0], ringB) {
		return true
	}
	if len(ringB) > 0 && pointInRing(ringB[0], ringA) {
		return true
	}

	return false
}

// orientation classifies the turn from p->q->r: 0 collinear, 1 clockwise,
// 2 counterclockwise.
func orientation(p, q, r Point) int {
	v := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return 2
	default:
		return 0
	}
}

// onSegment reports whether q lies on segment pr, assuming p, q, r are
// collinear.
func onSegment(p, q, r Point) bool {
	return min(p.X, r.X) <= q.X && q.X <= max(p.X, r.X) &&
		min(p.Y, r.Y) <= q.Y && q.Y <= max(p.Y, r.Y)
}

func segmentsIntersect(p1, q1, p2, q2 Point) bool {
	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// Collinear overlap cases.
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}

	return false
}

// pointInRing reports whether pt lies inside the closed ring, using the
// even-odd ray casting rule. Points exactly on the boundary are handled by
// the edge-crossing test in Intersects, not here.
func pointInRing(pt Point, ring []Point) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) &&
			pt.X < (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}
