package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/geoview.go/pkg/geotiff"
)

func raster(w, h int, bits int, bands ...[]uint16) *geotiff.RasterImage {
	return &geotiff.RasterImage{
		Width:         w,
		Height:        h,
		BitsPerSample: bits,
		Bands:         bands,
	}
}

func TestComposeRGB_ThreeBands(t *testing.T) {
	img := raster(2, 1, 8,
		[]uint16{10, 255},
		[]uint16{20, 0},
		[]uint16{30, 128},
	)

	buf, err := Compose(img, ModeRGB)
	require.NoError(t, err)
	require.Len(t, buf, 2*1*4)

	assert.Equal(t, []byte{10, 20, 30, 255}, buf[0:4])
	assert.Equal(t, []byte{255, 0, 128, 255}, buf[4:8])
}

// A single-band raster under RGB mode replicates the band as grayscale and
// still yields a full RGBA buffer.
func TestComposeRGB_SingleBandGrayscaleFallback(t *testing.T) {
	img := raster(3, 2, 8, []uint16{0, 50, 100, 150, 200, 250})

	buf, err := Compose(img, ModeRGB)
	require.NoError(t, err)
	require.Len(t, buf, 3*2*4)

	for i := 0; i < 6; i++ {
		px := buf[i*4 : i*4+4]
		assert.Equal(t, px[0], px[1])
		assert.Equal(t, px[1], px[2])
		assert.EqualValues(t, 255, px[3])
	}
}

func TestComposeRGB_16BitNormalized(t *testing.T) {
	img := raster(2, 1, 16, []uint16{0, 65535})

	buf, err := Compose(img, ModeRGB)
	require.NoError(t, err)
	assert.EqualValues(t, 0, buf[0])
	assert.EqualValues(t, 255, buf[4])
}

func TestComposeNDVI(t *testing.T) {
	// 4 bands: red is band 0, NIR is band 3
	img := raster(4, 1, 8,
		[]uint16{100, 0, 200, 0}, // red
		[]uint16{0, 0, 0, 0},
		[]uint16{0, 0, 0, 0},
		[]uint16{100, 200, 0, 0}, // nir
	)

	buf, err := Compose(img, ModeNDVI)
	require.NoError(t, err)

	// ndvi=0 -> 128 (midpoint, rounded)
	assert.EqualValues(t, 128, buf[0])
	// ndvi=+1 -> 255
	assert.EqualValues(t, 255, buf[4])
	// ndvi=-1 -> 0
	assert.EqualValues(t, 0, buf[8])
	// both bands zero -> midpoint, not a division blowup
	assert.EqualValues(t, 128, buf[12])
}

func TestComposeNDVI_InsufficientBands(t *testing.T) {
	img := raster(2, 2, 8, []uint16{1, 2, 3, 4})

	_, err := Compose(img, ModeNDVI)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientBands)
}

func TestComposeFallback_NDVIOnSingleBand(t *testing.T) {
	img := raster(2, 2, 8, []uint16{10, 20, 30, 40})

	buf, err := ComposeFallback(img, ModeNDVI)
	require.NoError(t, err)
	require.Len(t, buf, 2*2*4)
	// grayscale fallback replicates the single band
	assert.EqualValues(t, 10, buf[0])
	assert.EqualValues(t, 10, buf[1])
	assert.EqualValues(t, 10, buf[2])
}

func TestComposeInfrared(t *testing.T) {
	img := raster(2, 1, 8,
		[]uint16{1, 2},
		[]uint16{3, 4},
		[]uint16{5, 6},
		[]uint16{70, 80},
	)

	buf, err := Compose(img, ModeInfrared)
	require.NoError(t, err)
	assert.Equal(t, []byte{70, 70, 70, 255}, buf[0:4])
	assert.Equal(t, []byte{80, 80, 80, 255}, buf[4:8])
}

func TestComposeInfrared_SingleBand(t *testing.T) {
	img := raster(1, 1, 8, []uint16{42})

	buf, err := Compose(img, ModeInfrared)
	require.NoError(t, err)
	assert.EqualValues(t, 42, buf[0])
}

func TestStats(t *testing.T) {
	img := raster(2, 2, 16, []uint16{100, 900, 500, 300})

	st := Stats(img, 0)
	assert.Equal(t, 100.0, st.Min)
	assert.Equal(t, 900.0, st.Max)
}

func TestComposeStretched(t *testing.T) {
	img := raster(2, 1, 16, []uint16{1000, 2000})

	buf := ComposeStretched(img)
	// observed range stretched to full 8-bit span
	assert.EqualValues(t, 0, buf[0])
	assert.EqualValues(t, 255, buf[4])
}

func TestDefaultBandMap(t *testing.T) {
	tests := []struct {
		bands   int
		wantNIR int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 3},
		{8, 3},
	}
	for _, tt := range tests {
		bm := DefaultBandMap(tt.bands)
		assert.Equal(t, tt.wantNIR, bm.NIR, "bands=%d", tt.bands)
	}
}

func TestModeFromString(t *testing.T) {
	m, err := ModeFromString("ndvi")
	require.NoError(t, err)
	assert.Equal(t, ModeNDVI, m)

	_, err = ModeFromString("thermal")
	assert.Error(t, err)
}
