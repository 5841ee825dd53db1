// Package session ties a viewer session together: the currently loaded
// raster, its display buffer, the viewport mapper, the annotation store
// and the draw-gesture state machine.
//
// Interactive state follows a single-writer model: annotation and viewport
// mutations are dispatched serially from interaction events. Raster
// decoding and compositing run on a worker goroutine so loading never
// blocks interaction; each load carries a monotonically increasing
// generation token and only the most recent result is applied, so the
// display flips atomically from one fully decoded image to the next.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/jpfielding/geoview.go/pkg/annotation"
	"github.com/jpfielding/geoview.go/pkg/composite"
	"github.com/jpfielding/geoview.go/pkg/geotiff"
	"github.com/jpfielding/geoview.go/pkg/interchange"
	"github.com/jpfielding/geoview.go/pkg/viewport"
)

// Session is one viewer session over a single raster and annotation set.
type Session struct {
	mapper *viewport.Mapper
	store  *annotation.Store

	gen atomic.Uint64 // latest issued load generation

	mu         sync.Mutex // guards the applied image state below
	appliedGen uint64
	img        *geotiff.RasterImage
	display    []byte
	mode       composite.Mode
}

// New creates a session rendering to a display surface of the given size.
func New(displayW, displayH float64) *Session {
	return &Session{
		mapper: viewport.NewMapper(displayW, displayH),
		store:  annotation.NewStore(),
		mode:   composite.ModeRGB,
	}
}

// Mapper returns the session's coordinate mapper.
func (s *Session) Mapper() *viewport.Mapper { return s.mapper }

// Store returns the session's annotation store.
func (s *Session) Store() *annotation.Store { return s.store }

// LoadResult reports the outcome of one raster load.
type LoadResult struct {
	Generation uint64
	Image      *geotiff.RasterImage
	Display    []byte
	Err        error
	// Applied is false when the result was superseded by a newer load or
	// the decode failed; the previously applied image remains shown.
	Applied bool
}

// Load decodes and composites the container bytes on a worker goroutine.
// The returned channel delivers exactly one result. Viewport changes apply
// immediately and independently of any in-flight load.
func (s *Session) Load(ctx context.Context, data []byte) <-chan LoadResult {
	gen := s.gen.Add(1)
	ch := make(chan LoadResult, 1)

	go func() {
		res := LoadResult{Generation: gen}
		res.Image, res.Err = geotiff.Decode(data)
		if res.Err == nil {
			res.Display, res.Err = composite.ComposeFallback(res.Image, s.Mode())
		}
		if ctx.Err() != nil {
			res.Err = ctx.Err()
		}
		res.Applied = s.apply(&res)
		ch <- res
	}()
	return ch
}

// apply installs a decode result unless it failed or a newer load has been
// issued since. Failed loads leave the prior image in place.
func (s *Session) apply(res *LoadResult) bool {
	if res.Err != nil {
		slog.Warn("raster load failed, keeping previous image",
			slog.Uint64("generation", res.Generation),
			slog.String("error", res.Err.Error()))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Generation != s.gen.Load() || res.Generation <= s.appliedGen {
		slog.Debug("discarding superseded decode result",
			slog.Uint64("generation", res.Generation),
			slog.Uint64("latest", s.gen.Load()))
		return false
	}

	s.appliedGen = res.Generation
	s.img = res.Image
	s.display = res.Display
	s.mapper.SetRaster(res.Image)
	return true
}

// Image returns the currently applied raster, or nil before the first
// successful load.
func (s *Session) Image() *geotiff.RasterImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// Display returns the currently applied RGBA display buffer.
func (s *Session) Display() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// Mode returns the current band mode.
func (s *Session) Mode() composite.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the band mode and recomposites the applied image, if
// any. A mode the raster cannot serve falls back to grayscale.
func (s *Session) SetMode(mode composite.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	if s.img == nil {
		return nil
	}
	display, err := composite.ComposeFallback(s.img, mode)
	if err != nil {
		return err
	}
	s.display = display
	return nil
}

// HitTest resolves a device-space point to the topmost visible annotation
// under it, converting through the viewport first.
func (s *Session) HitTest(device orb.Point) (string, bool) {
	return s.store.HitTest(s.mapper.DeviceToImage(device))
}

// Merge inserts decoded interchange records into the store, one by one.
// Records that fail to decode or validate are skipped, not fatal; the
// count of admitted annotations and the skip count are returned. This is
// the path labeling suggestions arrive on.
func (s *Session) Merge(recs []interchange.Record) (added, skipped int) {
	anns, bad := interchange.DecodeAll(recs)
	skipped = len(bad)
	for _, a := range anns {
		// ids are reassigned so a replayed suggestion batch cannot collide
		a.ID = ""
		if _, err := s.store.Add(a); err != nil {
			slog.Warn("skipping suggestion rejected by store",
				slog.String("label", a.Label),
				slog.String("error", err.Error()))
			skipped++
			continue
		}
		added++
	}
	return added, skipped
}
