package annotation

import "github.com/paulmach/orb"

// HitTest returns the id of the topmost visible annotation containing p,
// iterating from the last-inserted entry to the first so later annotations
// occlude earlier ones. Point geometry has no hit area and is skipped.
//
// Containment conventions, applied uniformly:
//   - bounding box: inclusive on all edges, min <= p <= max per axis
//   - polygon: even-odd ray cast with a half-open edge rule; a point
//     exactly on a vertical right-hand edge counts as outside. The rule is
//     applied as-is to self-intersecting rings, which gives the even-odd
//     result rather than a winding one.
func HitTest(collection []Annotation, p orb.Point) (string, bool) {
	for i := len(collection) - 1; i >= 0; i-- {
		a := collection[i]
		if !a.Visible {
			continue
		}
		if Contains(a.Geometry, p) {
			return a.ID, true
		}
	}
	return "", false
}

// HitTest is a convenience over the store's current insertion order.
func (s *Store) HitTest(p orb.Point) (string, bool) {
	return HitTest(s.List(), p)
}

// Contains reports whether the geometry contains p under the hit-test
// conventions. Point geometry never contains anything.
func Contains(g Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case BoundingBox:
		b := geom.Bound()
		return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
			p[1] >= b.Min[1] && p[1] <= b.Max[1]
	case Polygon:
		return ringContains(geom.Ring, p)
	}
	return false
}

// ringContains is the even-odd rule: cast a ray from p in +X and count
// edge crossings; odd means inside. Edges are treated half-open in Y so a
// ray through a shared vertex counts once, not twice.
func ringContains(ring orb.Ring, p orb.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, yj := ring[i][1], ring[j][1]
		if (yi > p[1]) == (yj > p[1]) {
			continue
		}
		x := ring[i][0] + (p[1]-yi)/(yj-yi)*(ring[j][0]-ring[i][0])
		if p[0] < x {
			inside = !inside
		}
	}
	return inside
}
