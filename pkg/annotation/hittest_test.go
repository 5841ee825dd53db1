package annotation

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitTest_LaterAnnotationOccludes(t *testing.T) {
	s := NewStore()
	_, err := s.Insert(box(0, 0, 100, 100), "A")
	require.NoError(t, err)
	b, err := s.Insert(box(50, 50, 150, 150), "B")
	require.NoError(t, err)

	id, ok := s.HitTest(orb.Point{75, 75})
	require.True(t, ok)
	assert.Equal(t, b, id, "the later insert wins in the overlap")
}

func TestHitTest_SkipsInvisible(t *testing.T) {
	s := NewStore()
	a, _ := s.Insert(box(0, 0, 100, 100), "A")
	b, _ := s.Insert(box(0, 0, 100, 100), "B")

	require.NoError(t, s.SetVisibility(b, false))

	id, ok := s.HitTest(orb.Point{50, 50})
	require.True(t, ok)
	assert.Equal(t, a, id)
}

func TestHitTest_PointGeometryHasNoHitArea(t *testing.T) {
	s := NewStore()
	_, err := s.Insert(Point{P: orb.Point{10, 10}}, "marker")
	require.NoError(t, err)

	_, ok := s.HitTest(orb.Point{10, 10})
	assert.False(t, ok, "even an exact coordinate match does not hit a point")
}

func TestHitTest_Miss(t *testing.T) {
	s := NewStore()
	s.Insert(box(0, 0, 10, 10), "A")

	_, ok := s.HitTest(orb.Point{50, 50})
	assert.False(t, ok)
}

func TestHitTest_BoundingBoxEdgesInclusive(t *testing.T) {
	s := NewStore()
	id, _ := s.Insert(box(10, 10, 20, 20), "A")

	for _, p := range []orb.Point{{10, 15}, {20, 15}, {15, 10}, {15, 20}, {10, 10}, {20, 20}} {
		got, ok := s.HitTest(p)
		require.True(t, ok, "edge point %v", p)
		assert.Equal(t, id, got)
	}
}

func TestHitTest_BoxCornersInAnyOrder(t *testing.T) {
	// a drag from bottom-right to top-left stores corners reversed
	s := NewStore()
	id, _ := s.Insert(box(20, 20, 10, 10), "A")

	got, ok := s.HitTest(orb.Point{15, 15})
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRingContains_Square(t *testing.T) {
	square := orb.Ring{{0, 0}, {100, 0}, {100, 100}, {0, 100}}

	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"center inside", orb.Point{50, 50}, true},
		{"right of square", orb.Point{150, 50}, false},
		{"left of square", orb.Point{-1, 50}, false},
		{"above", orb.Point{50, 150}, false},
		// boundary convention: a point exactly on the right edge is
		// outside under the half-open even-odd rule; regression-pinned.
		{"right edge", orb.Point{100, 50}, false},
		{"near inside corner", orb.Point{1, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ringContains(square, tt.p))
		})
	}
}

func TestRingContains_Concave(t *testing.T) {
	// U shape: the notch between the prongs is outside
	u := orb.Ring{{0, 0}, {30, 0}, {30, 30}, {20, 30}, {20, 10}, {10, 10}, {10, 30}, {0, 30}}

	assert.True(t, ringContains(u, orb.Point{5, 20}), "left prong")
	assert.True(t, ringContains(u, orb.Point{25, 20}), "right prong")
	assert.False(t, ringContains(u, orb.Point{15, 20}), "notch")
	assert.True(t, ringContains(u, orb.Point{15, 5}), "base")
}

// Self-intersecting bow tie under even-odd: both lobes inside, the pinch
// region follows the crossing parity deterministically.
func TestRingContains_SelfIntersecting(t *testing.T) {
	bowtie := orb.Ring{{0, 0}, {100, 100}, {100, 0}, {0, 100}}

	assert.True(t, ringContains(bowtie, orb.Point{10, 50}), "left lobe")
	assert.True(t, ringContains(bowtie, orb.Point{90, 50}), "right lobe")
	assert.False(t, ringContains(bowtie, orb.Point{50, 10}), "above the crossing")
	assert.False(t, ringContains(bowtie, orb.Point{50, 90}), "below the crossing")
}

func TestHitTest_PolygonInStore(t *testing.T) {
	s := NewStore()
	id, err := s.Insert(Polygon{Ring: orb.Ring{{0, 0}, {100, 0}, {100, 100}, {0, 100}}}, "field")
	require.NoError(t, err)

	got, ok := s.HitTest(orb.Point{50, 50})
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = s.HitTest(orb.Point{150, 50})
	assert.False(t, ok)
}
