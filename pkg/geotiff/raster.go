package geotiff

import (
	"fmt"

	"github.com/paulmach/orb"
)

// RasterImage is the decoded descriptor plus per-band sample buffers.
// It is immutable once returned by the decoder; the viewer session that
// loaded it owns it exclusively.
type RasterImage struct {
	Width  int
	Height int

	// Bands holds one row-major buffer per band. 8-bit samples are widened
	// to uint16 at decode time; BitsPerSample records the original depth.
	Bands         [][]uint16
	BitsPerSample int

	// Extent is the geographic rectangle the raster covers, valid only
	// when IsGeoReferenced is true.
	Extent          orb.Bound
	EPSG            int
	IsGeoReferenced bool
}

// BandCount returns the number of sample bands.
func (img *RasterImage) BandCount() int {
	return len(img.Bands)
}

// Band returns the row-major sample buffer for band b.
func (img *RasterImage) Band(b int) []uint16 {
	if b < 0 || b >= len(img.Bands) {
		return nil
	}
	return img.Bands[b]
}

// At returns the sample for band b at pixel (x, y). Out-of-range
// coordinates return 0.
func (img *RasterImage) At(b, x, y int) uint16 {
	if b < 0 || b >= len(img.Bands) || x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return 0
	}
	return img.Bands[b][y*img.Width+x]
}

// MaxSample returns the largest representable sample value for the
// raster's bit depth.
func (img *RasterImage) MaxSample() float64 {
	if img.BitsPerSample == 8 {
		return 255
	}
	return 65535
}

// CRS returns the coordinate reference identifier in EPSG:n form, or ""
// when the raster carries no georeference.
func (img *RasterImage) CRS() string {
	if !img.IsGeoReferenced || img.EPSG == 0 {
		return ""
	}
	return fmt.Sprintf("EPSG:%d", img.EPSG)
}
