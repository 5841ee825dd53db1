// Package composite maps raster bands into a displayable RGBA buffer.
//
// All modes normalize samples to 8 bits per channel with clamping; integer
// samples are treated as unsigned and never wrap. The returned buffer is
// width*height*4 bytes in RGBA order.
package composite

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/jpfielding/geoview.go/pkg/geotiff"
)

// Mode selects how bands are composited for display.
type Mode int

const (
	ModeRGB Mode = iota
	ModeInfrared
	ModeNDVI
)

func (m Mode) String() string {
	switch m {
	case ModeRGB:
		return "rgb"
	case ModeInfrared:
		return "infrared"
	case ModeNDVI:
		return "ndvi"
	}
	return "unknown"
}

// ModeFromString parses a mode name as used by the CLI.
func ModeFromString(s string) (Mode, error) {
	switch s {
	case "rgb":
		return ModeRGB, nil
	case "infrared", "ir":
		return ModeInfrared, nil
	case "ndvi":
		return ModeNDVI, nil
	}
	return ModeRGB, fmt.Errorf("unknown band mode %q", s)
}

// ErrInsufficientBands is returned when a mode needs more bands than the
// raster carries and no fallback is requested.
var ErrInsufficientBands = errors.New("composite: insufficient bands")

// BandMap designates which band index serves each display role.
type BandMap struct {
	Red, Green, Blue int
	NIR              int
}

// DefaultBandMap follows the common RGB(+NIR) layout: bands 0..2 are
// red/green/blue and the near-infrared band is band 3 when present,
// otherwise the last band.
func DefaultBandMap(bandCount int) BandMap {
	bm := BandMap{Red: 0, Green: 1, Blue: 2, NIR: bandCount - 1}
	if bandCount >= 4 {
		bm.NIR = 3
	}
	return bm
}

// Compose renders the raster under the given mode using the default band
// map and bit-depth normalization.
func Compose(img *geotiff.RasterImage, mode Mode) ([]byte, error) {
	return ComposeWithBands(img, mode, DefaultBandMap(img.BandCount()))
}

// ComposeWithBands renders the raster under the given mode and band map.
func ComposeWithBands(img *geotiff.RasterImage, mode Mode, bm BandMap) ([]byte, error) {
	switch mode {
	case ModeRGB:
		return composeRGB(img, bm), nil
	case ModeInfrared:
		return composeInfrared(img, bm)
	case ModeNDVI:
		return composeNDVI(img, bm)
	}
	return nil, fmt.Errorf("composite: unknown mode %d", mode)
}

// ComposeFallback renders the raster under the given mode, falling back to
// single-band grayscale when the mode needs bands the raster does not have.
// Only a missing-band failure triggers the fallback.
func ComposeFallback(img *geotiff.RasterImage, mode Mode) ([]byte, error) {
	buf, err := Compose(img, mode)
	if errors.Is(err, ErrInsufficientBands) {
		slog.Warn("falling back to grayscale rendering",
			slog.String("mode", mode.String()),
			slog.Int("bands", img.BandCount()))
		return composeRGB(img, DefaultBandMap(img.BandCount())), nil
	}
	return buf, err
}

// composeRGB is a passthrough of the red/green/blue bands. Rasters with
// fewer than 3 bands render the first band as grayscale; this mode never
// fails on a band-count mismatch.
func composeRGB(img *geotiff.RasterImage, bm BandMap) []byte {
	out := newRGBA(img)
	scale := 255 / img.MaxSample()

	if img.BandCount() >= 3 {
		r, g, b := img.Band(bm.Red), img.Band(bm.Green), img.Band(bm.Blue)
		for i := range r {
			out[i*4+0] = clamp8(float64(r[i]) * scale)
			out[i*4+1] = clamp8(float64(g[i]) * scale)
			out[i*4+2] = clamp8(float64(b[i]) * scale)
		}
		return out
	}

	gray := img.Band(0)
	for i := range gray {
		v := clamp8(float64(gray[i]) * scale)
		out[i*4+0] = v
		out[i*4+1] = v
		out[i*4+2] = v
	}
	return out
}

// composeInfrared renders the designated near-infrared band as grayscale.
// A single-band raster is its own infrared band.
func composeInfrared(img *geotiff.RasterImage, bm BandMap) ([]byte, error) {
	nir := img.Band(bm.NIR)
	if nir == nil {
		return nil, fmt.Errorf("infrared band %d: %w", bm.NIR, ErrInsufficientBands)
	}

	out := newRGBA(img)
	scale := 255 / img.MaxSample()
	for i := range nir {
		v := clamp8(float64(nir[i]) * scale)
		out[i*4+0] = v
		out[i*4+1] = v
		out[i*4+2] = v
	}
	return out, nil
}

// composeNDVI computes (NIR-Red)/(NIR+Red) per pixel and rescales the
// [-1,1] result to [0,255]. A pixel where both bands are zero maps to the
// midpoint.
func composeNDVI(img *geotiff.RasterImage, bm BandMap) ([]byte, error) {
	if img.BandCount() < 2 {
		return nil, fmt.Errorf("ndvi needs red and near-infrared bands, have %d: %w",
			img.BandCount(), ErrInsufficientBands)
	}

	red, nir := img.Band(bm.Red), img.Band(bm.NIR)
	out := newRGBA(img)
	for i := range red {
		r, n := float64(red[i]), float64(nir[i])
		ndvi := 0.0
		if n+r != 0 {
			ndvi = (n - r) / (n + r)
		}
		v := clamp8((ndvi + 1) / 2 * 255)
		out[i*4+0] = v
		out[i*4+1] = v
		out[i*4+2] = v
	}
	return out, nil
}

// BandStats reports the observed sample range of one band.
type BandStats struct {
	Min, Max float64
}

// Stats computes the min/max sample range of band b.
func Stats(img *geotiff.RasterImage, b int) BandStats {
	band := img.Band(b)
	if len(band) == 0 {
		return BandStats{}
	}
	vals := make([]float64, len(band))
	for i, s := range band {
		vals[i] = float64(s)
	}
	return BandStats{Min: floats.Min(vals), Max: floats.Max(vals)}
}

// ComposeStretched renders RGB with a per-band linear contrast stretch to
// the observed sample range instead of the nominal bit depth. Low-contrast
// 16-bit scenes are unreadable under nominal scaling, so the CLI uses this
// for display exports.
func ComposeStretched(img *geotiff.RasterImage) []byte {
	bm := DefaultBandMap(img.BandCount())
	out := newRGBA(img)

	bands := []int{bm.Red, bm.Green, bm.Blue}
	if img.BandCount() < 3 {
		bands = []int{0, 0, 0}
	}
	for c, b := range bands {
		st := Stats(img, b)
		span := st.Max - st.Min
		if span == 0 {
			span = 1
		}
		band := img.Band(b)
		for i, s := range band {
			out[i*4+c] = clamp8((float64(s) - st.Min) / span * 255)
		}
	}
	return out
}

func newRGBA(img *geotiff.RasterImage) []byte {
	out := make([]byte, img.Width*img.Height*4)
	for i := 3; i < len(out); i += 4 {
		out[i] = 255
	}
	return out
}

func clamp8(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}
