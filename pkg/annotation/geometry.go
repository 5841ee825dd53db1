// Package annotation owns the labeled geometry collection of a viewer
// session: the geometry sum type, the ordered store and hit-testing.
package annotation

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrDegenerateGeometry rejects geometry that violates its arm's
// invariants: non-finite coordinates or too few polygon vertices.
var ErrDegenerateGeometry = errors.New("annotation: degenerate geometry")

// Kind tags the geometry variants.
type Kind int

const (
	KindPoint Kind = iota + 1
	KindBoundingBox
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindBoundingBox:
		return "bbox"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

// Geometry is a closed sum over the three annotation shapes. Each variant
// enforces its own vertex-count invariant in Validate.
type Geometry interface {
	Kind() Kind
	Validate() error

	sealed()
}

// Point is a single image-pixel location. Points have no hit area.
type Point struct {
	P orb.Point
}

func (Point) Kind() Kind { return KindPoint }
func (Point) sealed()    {}

func (p Point) Validate() error {
	if !finite(p.P) {
		return fmt.Errorf("point with non-finite coordinates: %w", ErrDegenerateGeometry)
	}
	return nil
}

// BoundingBox is an axis-aligned rectangle stored as the two corner points
// the user dragged, in drag order. Bound() normalizes to min/max.
type BoundingBox struct {
	A, B orb.Point
}

func (BoundingBox) Kind() Kind { return KindBoundingBox }
func (BoundingBox) sealed()    {}

func (b BoundingBox) Validate() error {
	if !finite(b.A) || !finite(b.B) {
		return fmt.Errorf("bounding box with non-finite corner: %w", ErrDegenerateGeometry)
	}
	return nil
}

// Bound returns the normalized min/max rectangle.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(b.A[0], b.B[0]), math.Min(b.A[1], b.B[1])},
		Max: orb.Point{math.Max(b.A[0], b.B[0]), math.Max(b.A[1], b.B[1])},
	}
}

// Polygon is an ordered vertex ring of at least 3 points, stored without a
// closing duplicate of the first vertex.
type Polygon struct {
	Ring orb.Ring
}

func (Polygon) Kind() Kind { return KindPolygon }
func (Polygon) sealed()    {}

func (p Polygon) Validate() error {
	if len(p.Ring) < 3 {
		return fmt.Errorf("polygon with %d vertices: %w", len(p.Ring), ErrDegenerateGeometry)
	}
	for _, v := range p.Ring {
		if !finite(v) {
			return fmt.Errorf("polygon with non-finite vertex: %w", ErrDegenerateGeometry)
		}
	}
	return nil
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}
