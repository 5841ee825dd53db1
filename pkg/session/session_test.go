package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/geoview.go/pkg/annotation"
	"github.com/jpfielding/geoview.go/pkg/composite"
	"github.com/jpfielding/geoview.go/pkg/geotiff"
	"github.com/jpfielding/geoview.go/pkg/interchange"
)

func encodedRaster(t *testing.T, w, h, bands int) []byte {
	t.Helper()
	img := &geotiff.RasterImage{
		Width:         w,
		Height:        h,
		BitsPerSample: 8,
		Bands:         make([][]uint16, bands),
	}
	for b := range img.Bands {
		img.Bands[b] = make([]uint16, w*h)
		for i := range img.Bands[b] {
			img.Bands[b][i] = uint16((i + b) % 256)
		}
	}
	data, err := geotiff.Encode(img)
	require.NoError(t, err)
	return data
}

func TestSession_LoadApplies(t *testing.T) {
	s := New(800, 600)
	require.Nil(t, s.Image())

	res := <-s.Load(context.Background(), encodedRaster(t, 8, 4, 3))
	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.EqualValues(t, 1, res.Generation)

	img := s.Image()
	require.NotNil(t, img)
	assert.Equal(t, 8, img.Width)
	assert.Len(t, s.Display(), 8*4*4)
}

func TestSession_LoadFailureKeepsPreviousImage(t *testing.T) {
	s := New(800, 600)
	res := <-s.Load(context.Background(), encodedRaster(t, 8, 4, 3))
	require.True(t, res.Applied)
	prev := s.Image()

	res = <-s.Load(context.Background(), []byte("not a raster"))
	require.Error(t, res.Err)
	assert.False(t, res.Applied)
	assert.Same(t, prev, s.Image(), "failed load must not disturb the applied image")
}

// A decode result that is no longer the most recent generation is
// discarded rather than applied.
func TestSession_StaleGenerationDiscarded(t *testing.T) {
	s := New(800, 600)

	// a newer load has been issued before the older result lands
	stale := &LoadResult{Generation: s.gen.Add(1)}
	s.gen.Add(1)

	img, err := geotiff.Decode(encodedRaster(t, 4, 4, 1))
	require.NoError(t, err)
	stale.Image = img
	stale.Display, _ = composite.Compose(img, composite.ModeRGB)

	assert.False(t, s.apply(stale))
	assert.Nil(t, s.Image())
}

func TestSession_SequentialLoadsApplyInOrder(t *testing.T) {
	s := New(800, 600)

	res := <-s.Load(context.Background(), encodedRaster(t, 4, 4, 1))
	require.True(t, res.Applied)
	res = <-s.Load(context.Background(), encodedRaster(t, 16, 16, 3))
	require.True(t, res.Applied)

	assert.Equal(t, 16, s.Image().Width)
	assert.EqualValues(t, 2, res.Generation)
}

func TestSession_SetModeRecomposites(t *testing.T) {
	s := New(800, 600)
	res := <-s.Load(context.Background(), encodedRaster(t, 4, 4, 4))
	require.True(t, res.Applied)

	require.NoError(t, s.SetMode(composite.ModeNDVI))
	assert.Equal(t, composite.ModeNDVI, s.Mode())
	assert.Len(t, s.Display(), 4*4*4)
}

func TestSession_HitTestThroughViewport(t *testing.T) {
	s := New(800, 600)
	id, err := s.Store().Insert(annotation.BoundingBox{A: orb.Point{0, 0}, B: orb.Point{100, 100}}, "pad")
	require.NoError(t, err)

	s.Mapper().Zoom(2)
	// device (150,150) -> image (75,75), inside the box
	got, ok := s.HitTest(orb.Point{150, 150})
	require.True(t, ok)
	assert.Equal(t, id, got)

	// device (250,250) -> image (125,125), outside
	_, ok = s.HitTest(orb.Point{250, 250})
	assert.False(t, ok)
}

func TestSession_MergeSkipsBadRecords(t *testing.T) {
	s := New(800, 600)
	over := 1.7
	recs := []interchange.Record{
		{ID: "s-1", Type: interchange.TypeBBox, Label: "vehicle",
			Coordinates: json.RawMessage("[[10,10],[20,20]]")},
		{ID: "s-2", Type: "squiggle", Coordinates: json.RawMessage("[]")},
		{ID: "s-3", Type: interchange.TypePoint, Label: "mast",
			Coordinates: json.RawMessage("[5,5]"), Confidence: &over},
	}

	added, skipped := s.Merge(recs)
	assert.Equal(t, 1, added, "codec rejects s-2, store rejects s-3's confidence")
	assert.Equal(t, 2, skipped)

	list := s.Store().List()
	require.Len(t, list, 1)
	assert.Equal(t, "vehicle", list[0].Label)
	assert.NotEqual(t, "s-1", list[0].ID, "merged suggestions get fresh ids")
}
