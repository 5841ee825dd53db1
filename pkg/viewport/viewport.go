// Package viewport converts between device, display, image-pixel and
// geographic coordinate spaces, and owns the pan/zoom state of a viewer.
//
// All points are orb.Point values; which space a point lives in is part of
// each method's contract. Geographic conversions are only defined for
// georeferenced rasters and fail with ErrNoGeoreference otherwise.
package viewport

import (
	"errors"
	"math"

	"github.com/paulmach/orb"

	"github.com/jpfielding/geoview.go/pkg/geotiff"
)

// Scale bounds for the viewer. Zoom never leaves this range.
const (
	MinScale = 0.1
	MaxScale = 5.0
)

// ErrNoGeoreference is returned by geographic conversions when the loaded
// raster carries no georeference. The viewport state is left untouched.
var ErrNoGeoreference = errors.New("viewport: raster is not georeferenced")

// Viewport is the ephemeral pan/zoom state. It is mutated continuously by
// interaction and never persisted.
type Viewport struct {
	Scale       float64
	Translation orb.Point
}

// Mapper owns a Viewport plus the display size and, when a georeferenced
// raster is loaded, the linear pixel<->geographic transform.
type Mapper struct {
	vp             Viewport
	displayW       float64
	displayH       float64
	extent         orb.Bound
	imageW, imageH int
	georeferenced  bool
}

// NewMapper creates a mapper for a display surface of the given size.
func NewMapper(displayW, displayH float64) *Mapper {
	return &Mapper{
		vp:       Viewport{Scale: 1},
		displayW: displayW,
		displayH: displayH,
	}
}

// Viewport returns a copy of the current pan/zoom state.
func (m *Mapper) Viewport() Viewport {
	return m.vp
}

// SetDisplaySize updates the target display size, leaving pan/zoom alone.
func (m *Mapper) SetDisplaySize(w, h float64) {
	m.displayW, m.displayH = w, h
}

// SetRaster installs the georeference of a newly loaded raster, or clears
// it when the raster is a plain image.
func (m *Mapper) SetRaster(img *geotiff.RasterImage) {
	if img == nil || !img.IsGeoReferenced {
		m.georeferenced = false
		return
	}
	m.extent = img.Extent
	m.imageW, m.imageH = img.Width, img.Height
	m.georeferenced = true
}

// DeviceToImage converts a device point to image-pixel space by
// inverse-applying the translation and then the scale.
func (m *Mapper) DeviceToImage(p orb.Point) orb.Point {
	return orb.Point{
		(p[0] - m.vp.Translation[0]) / m.vp.Scale,
		(p[1] - m.vp.Translation[1]) / m.vp.Scale,
	}
}

// ImageToDevice is the inverse of DeviceToImage, used when projecting
// annotation geometry onto the display surface.
func (m *Mapper) ImageToDevice(p orb.Point) orb.Point {
	return orb.Point{
		p[0]*m.vp.Scale + m.vp.Translation[0],
		p[1]*m.vp.Scale + m.vp.Translation[1],
	}
}

// Zoom multiplies the current scale by factor, clamped to
// [MinScale, MaxScale].
func (m *Mapper) Zoom(factor float64) {
	m.vp.Scale = clampScale(m.vp.Scale * factor)
}

// Pan adds delta (device space) to the translation. Translation is
// unconstrained; panning past the image edge is allowed.
func (m *Mapper) Pan(delta orb.Point) {
	m.vp.Translation[0] += delta[0]
	m.vp.Translation[1] += delta[1]
}

// Reset restores scale 1 and zero translation.
func (m *Mapper) Reset() {
	m.vp = Viewport{Scale: 1}
}

// FitExtent sets scale and translation so the given image-space rectangle
// fills the display area minus padding on each side, centered.
func (m *Mapper) FitExtent(extent orb.Bound, padding float64) {
	w := extent.Max[0] - extent.Min[0]
	h := extent.Max[1] - extent.Min[1]
	if w <= 0 || h <= 0 {
		return
	}

	availW := m.displayW - 2*padding
	availH := m.displayH - 2*padding
	if availW <= 0 || availH <= 0 {
		return
	}

	m.vp.Scale = clampScale(math.Min(availW/w, availH/h))

	cx := (extent.Min[0] + extent.Max[0]) / 2
	cy := (extent.Min[1] + extent.Max[1]) / 2
	m.vp.Translation = orb.Point{
		m.displayW/2 - cx*m.vp.Scale,
		m.displayH/2 - cy*m.vp.Scale,
	}
}

// ImageToGeo converts an image-pixel point to geographic coordinates using
// the raster extent. Image row 0 maps to the extent's top edge.
func (m *Mapper) ImageToGeo(p orb.Point) (orb.Point, error) {
	if !m.georeferenced {
		return orb.Point{}, ErrNoGeoreference
	}
	gw := m.extent.Max[0] - m.extent.Min[0]
	gh := m.extent.Max[1] - m.extent.Min[1]
	return orb.Point{
		m.extent.Min[0] + p[0]/float64(m.imageW)*gw,
		m.extent.Max[1] - p[1]/float64(m.imageH)*gh,
	}, nil
}

// GeoToImage is the inverse of ImageToGeo.
func (m *Mapper) GeoToImage(p orb.Point) (orb.Point, error) {
	if !m.georeferenced {
		return orb.Point{}, ErrNoGeoreference
	}
	gw := m.extent.Max[0] - m.extent.Min[0]
	gh := m.extent.Max[1] - m.extent.Min[1]
	if gw == 0 || gh == 0 {
		return orb.Point{}, ErrNoGeoreference
	}
	return orb.Point{
		(p[0] - m.extent.Min[0]) / gw * float64(m.imageW),
		(m.extent.Max[1] - p[1]) / gh * float64(m.imageH),
	}, nil
}

func clampScale(s float64) float64 {
	return math.Min(MaxScale, math.Max(MinScale, s))
}
