package geotiff

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/geoview.go/pkg/geotiff/tag"
)

// testRaster builds a raster with a deterministic gradient in every band.
func testRaster(w, h, bands, bits int) *RasterImage {
	img := &RasterImage{
		Width:         w,
		Height:        h,
		BitsPerSample: bits,
		Bands:         make([][]uint16, bands),
	}
	for b := range img.Bands {
		img.Bands[b] = make([]uint16, w*h)
		for i := range img.Bands[b] {
			v := (i*7 + b*31) % 256
			if bits == 16 {
				v = (i*257 + b*1031) % 65536
			}
			img.Bands[b][i] = uint16(v)
		}
	}
	return img
}

func TestDecode_RoundTripGeoReferenced(t *testing.T) {
	src := testRaster(8, 6, 4, 16)
	src.IsGeoReferenced = true
	src.EPSG = 32633
	src.Extent = orb.Bound{Min: orb.Point{500000, 4640000}, Max: orb.Point{500080, 4640060}}

	data, err := Encode(src)
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, 8, img.Width)
	assert.Equal(t, 6, img.Height)
	assert.Equal(t, 4, img.BandCount())
	assert.Equal(t, 16, img.BitsPerSample)
	for b := 0; b < 4; b++ {
		assert.Equal(t, src.Bands[b], img.Bands[b], "band %d", b)
	}

	require.True(t, img.IsGeoReferenced)
	assert.Equal(t, 32633, img.EPSG)
	assert.Equal(t, "EPSG:32633", img.CRS())
	assert.InDelta(t, 500000, img.Extent.Min[0], 1e-6)
	assert.InDelta(t, 4640000, img.Extent.Min[1], 1e-6)
	assert.InDelta(t, 500080, img.Extent.Max[0], 1e-6)
	assert.InDelta(t, 4640060, img.Extent.Max[1], 1e-6)
}

// A structurally valid raster without geospatial tags must decode as a
// plain raster, not fail.
func TestDecode_PlainRasterFallback(t *testing.T) {
	data, err := Encode(testRaster(16, 16, 3, 8))
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 16, img.Height)
	assert.False(t, img.IsGeoReferenced)
	assert.Equal(t, "", img.CRS())
}

func TestDecode_SingleBand(t *testing.T) {
	data, err := Encode(testRaster(5, 4, 1, 8))
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1, img.BandCount())
	assert.EqualValues(t, 7, img.At(0, 1, 0))
}

func TestDecode_MalformedHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte{'I', 'I', 42}},
		{"bad byte order", []byte("XX\x2a\x00\x08\x00\x00\x00")},
		{"bad magic", []byte("II\x2b\x00\x08\x00\x00\x00")},
		{"ifd beyond stream", []byte("II\x2a\x00\xff\x00\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, MalformedHeader, de.Reason)
		})
	}
}

// craftedHeader builds a minimal little-endian container declaring the
// given dimensions and nothing else.
func craftedHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8)) // IFD right after header

	entries := []struct {
		id    uint16
		value uint32
	}{
		{256, width},  // ImageWidth
		{257, height}, // ImageLength
	}
	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.id)
		binary.Write(&buf, binary.LittleEndian, uint16(4)) // LONG
		binary.Write(&buf, binary.LittleEndian, uint32(1))
		binary.Write(&buf, binary.LittleEndian, e.value)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // no next IFD
	return buf.Bytes()
}

// A header may declare any dimensions it likes; the decoder must reject a
// raster the stream cannot possibly back with a DecodeError, never panic
// or allocate for it.
func TestDecode_DeclaredSizeBeyondStream(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
	}{
		{"dimension product overflow", 0xFFFFFFFF, 0xFFFFFFFF},
		{"gigabytes declared in a tiny stream", 100000, 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := craftedHeader(tt.width, tt.height)
			_, err := Decode(data)
			require.Error(t, err)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, MalformedHeader, de.Reason)
		})
	}
}

func TestDecode_TruncatedStrip(t *testing.T) {
	data, err := Encode(testRaster(32, 32, 2, 16))
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-100])
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	// either the strip bytes or the tag values land past the cut
	assert.Contains(t, []Reason{Truncated, MalformedHeader}, de.Reason)
}

func TestDecompressStrip(t *testing.T) {
	raw := []byte("band samples band samples band samples")

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	out, err := decompressStrip(buf.Bytes(), tag.CompressionDeflate)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	out, err = decompressStrip(raw, tag.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	_, err = decompressStrip(raw, 7) // JPEG, not handled
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, Unsupported, de.Reason)
}

func TestEPSGFromGeoKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []uint64
		want int
	}{
		{"empty", nil, 0},
		{"geographic", []uint64{1, 1, 0, 1, 2048, 0, 1, 4326}, 4326},
		{"projected wins", []uint64{1, 1, 0, 2, 2048, 0, 1, 4326, 3072, 0, 1, 32633}, 32633},
		{"external location skipped", []uint64{1, 1, 0, 1, 3072, 34736, 1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, epsgFromGeoKeys(tt.keys))
		})
	}
}

func TestReadBuffer_ArbitraryBandCount(t *testing.T) {
	// not limited to RGB-shaped rasters
	for _, bands := range []int{1, 2, 5, 8} {
		data, err := Encode(testRaster(4, 4, bands, 8))
		require.NoError(t, err)
		img, err := ReadBuffer(data)
		require.NoError(t, err)
		assert.Equal(t, bands, img.BandCount())
	}
}
