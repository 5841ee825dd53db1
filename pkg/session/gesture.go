package session

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/jpfielding/geoview.go/pkg/annotation"
)

// Tool is the interaction mode a pointer event is dispatched under. It is
// passed explicitly on pointer-down; the gesture carries no ambient mode.
type Tool int

const (
	ToolPoint Tool = iota + 1
	ToolBBox
	ToolPolygon
)

func (t Tool) String() string {
	switch t {
	case ToolPoint:
		return "point"
	case ToolBBox:
		return "bbox"
	case ToolPolygon:
		return "polygon"
	}
	return "unknown"
}

// Phase is the gesture state.
type Phase int

const (
	Idle Phase = iota
	Drawing
	Committing
)

// ErrIncompleteGesture is returned when a gesture cannot commit, e.g. a
// polygon completed with fewer than 3 vertices.
var ErrIncompleteGesture = errors.New("session: incomplete gesture")

// Gesture is the draw state machine: Idle -> Drawing on pointer-down,
// Drawing -> Committing -> Idle when the tool's shape is complete. Every
// transition is an explicit method call, so a gesture sequence can be
// replayed in tests without simulating UI events.
//
// All coordinates are image-pixel space; the caller converts from device
// space before dispatching.
type Gesture struct {
	phase  Phase
	tool   Tool
	points []orb.Point
}

// Phase returns the current state.
func (g *Gesture) Phase() Phase { return g.phase }

// Tool returns the interaction mode of the gesture in progress.
func (g *Gesture) Tool() Tool { return g.tool }

// Partial returns the vertices collected so far, for rubber-band drawing.
func (g *Gesture) Partial() []orb.Point {
	out := make([]orb.Point, len(g.points))
	copy(out, g.points)
	return out
}

// PointerDown starts a gesture under the given tool, or adds a vertex to a
// polygon in progress. Switching tools mid-gesture cancels the old one.
func (g *Gesture) PointerDown(tool Tool, p orb.Point) {
	if g.phase == Drawing && tool != g.tool {
		g.Cancel()
	}
	switch g.phase {
	case Idle:
		g.phase = Drawing
		g.tool = tool
		g.points = []orb.Point{p}
		if tool == ToolBBox {
			g.points = append(g.points, p) // second corner tracks the pointer
		}
	case Drawing:
		if g.tool == ToolPolygon {
			g.points = append(g.points, p)
		}
	}
}

// PointerMove updates the trailing vertex while drawing: the moving corner
// of a bbox, or the rubber-band vertex of a polygon.
func (g *Gesture) PointerMove(p orb.Point) {
	if g.phase != Drawing || len(g.points) == 0 {
		return
	}
	switch g.tool {
	case ToolBBox:
		g.points[len(g.points)-1] = p
	case ToolPolygon:
		g.points[len(g.points)-1] = p
	}
}

// PointerUp finishes single-drag shapes. Point and bbox gestures commit;
// a polygon stays in Drawing until Complete is called.
func (g *Gesture) PointerUp(p orb.Point) (annotation.Geometry, bool) {
	if g.phase != Drawing {
		return nil, false
	}
	switch g.tool {
	case ToolPoint:
		geom, err := g.commit(annotation.Point{P: g.points[0]})
		return geom, err == nil
	case ToolBBox:
		g.points[len(g.points)-1] = p
		geom, err := g.commit(annotation.BoundingBox{A: g.points[0], B: g.points[1]})
		return geom, err == nil
	}
	return nil, false
}

// Complete ends a polygon gesture. Fails with ErrIncompleteGesture when
// fewer than 3 vertices were placed; the gesture stays in Drawing so the
// user can keep adding vertices.
func (g *Gesture) Complete() (annotation.Geometry, error) {
	if g.phase != Drawing || g.tool != ToolPolygon {
		return nil, fmt.Errorf("no polygon in progress: %w", ErrIncompleteGesture)
	}
	if len(g.points) < 3 {
		return nil, fmt.Errorf("%d vertices: %w", len(g.points), ErrIncompleteGesture)
	}
	return g.commit(annotation.Polygon{Ring: orb.Ring(g.points)})
}

// Cancel abandons the gesture in progress.
func (g *Gesture) Cancel() {
	g.phase = Idle
	g.tool = 0
	g.points = nil
}

// commit validates the finished shape and resets to Idle.
func (g *Gesture) commit(geom annotation.Geometry) (annotation.Geometry, error) {
	g.phase = Committing
	if err := geom.Validate(); err != nil {
		g.Cancel()
		return nil, err
	}
	g.Cancel()
	return geom, nil
}
