// Package interchange serializes annotations to and from the geometry
// interchange record, a language-neutral JSON shape shared with the
// upload, labeling-suggestion and change-detection collaborators.
//
// Record shapes:
//
//	point   {"type":"point",   "coordinates":[x,y]}
//	bbox    {"type":"bbox",    "coordinates":[[x1,y1],[x2,y2]]}
//	polygon {"type":"polygon", "coordinates":[[x,y],...]}  // ring, unclosed
//
// A bounding box stays two corners on the wire, symmetric with how the
// store holds it. Polygon rings are written without a closing duplicate of
// the first vertex; a closed ring is tolerated on decode and stripped.
package interchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/jpfielding/geoview.go/pkg/annotation"
)

var (
	// ErrUnknownType is returned for an unrecognized type tag.
	ErrUnknownType = errors.New("interchange: unknown geometry type")
	// ErrArityMismatch is returned when the coordinate count does not fit
	// the declared type.
	ErrArityMismatch = errors.New("interchange: coordinate arity mismatch")
)

// Type tags on the wire.
const (
	TypePoint   = "point"
	TypeBBox    = "bbox"
	TypePolygon = "polygon"
)

// Record is one geometry interchange record.
type Record struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	Coordinates json.RawMessage `json:"coordinates"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Visible     *bool           `json:"visible,omitempty"`
}

// Encode serializes an annotation to an interchange record.
func Encode(a annotation.Annotation) (Record, error) {
	rec := Record{
		ID:         a.ID,
		Label:      a.Label,
		Confidence: a.Confidence,
	}
	if !a.Visible {
		vis := false
		rec.Visible = &vis
	}

	var coords any
	switch g := a.Geometry.(type) {
	case annotation.Point:
		rec.Type = TypePoint
		coords = []float64{g.P[0], g.P[1]}
	case annotation.BoundingBox:
		rec.Type = TypeBBox
		coords = [][]float64{{g.A[0], g.A[1]}, {g.B[0], g.B[1]}}
	case annotation.Polygon:
		rec.Type = TypePolygon
		ring := make([][]float64, len(g.Ring))
		for i, v := range g.Ring {
			ring[i] = []float64{v[0], v[1]}
		}
		coords = ring
	default:
		return Record{}, fmt.Errorf("geometry kind %v: %w", a.Geometry.Kind(), ErrUnknownType)
	}

	raw, err := json.Marshal(coords)
	if err != nil {
		return Record{}, fmt.Errorf("encoding coordinates: %w", err)
	}
	rec.Coordinates = raw
	return rec, nil
}

// Decode parses an interchange record back into an annotation. Kind,
// vertex order and count survive a round trip exactly; label, confidence
// and visibility pass through unchanged, with visibility defaulting to
// true when absent.
func Decode(rec Record) (annotation.Annotation, error) {
	a := annotation.Annotation{
		ID:         rec.ID,
		Label:      rec.Label,
		Confidence: rec.Confidence,
		Visible:    true,
	}
	if rec.Visible != nil {
		a.Visible = *rec.Visible
	}

	switch rec.Type {
	case TypePoint:
		var p []float64
		if err := json.Unmarshal(rec.Coordinates, &p); err != nil || len(p) != 2 {
			return annotation.Annotation{}, fmt.Errorf("point wants [x,y]: %w", ErrArityMismatch)
		}
		a.Geometry = annotation.Point{P: orb.Point{p[0], p[1]}}

	case TypeBBox:
		pts, err := decodePairs(rec.Coordinates)
		if err != nil {
			return annotation.Annotation{}, err
		}
		if len(pts) != 2 {
			return annotation.Annotation{}, fmt.Errorf("bbox wants 2 corners, got %d: %w", len(pts), ErrArityMismatch)
		}
		a.Geometry = annotation.BoundingBox{A: pts[0], B: pts[1]}

	case TypePolygon:
		pts, err := decodePairs(rec.Coordinates)
		if err != nil {
			return annotation.Annotation{}, err
		}
		// tolerate an explicitly closed ring
		if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		if len(pts) < 3 {
			return annotation.Annotation{}, fmt.Errorf("polygon wants >=3 vertices, got %d: %w", len(pts), ErrArityMismatch)
		}
		a.Geometry = annotation.Polygon{Ring: orb.Ring(pts)}

	default:
		return annotation.Annotation{}, fmt.Errorf("type %q: %w", rec.Type, ErrUnknownType)
	}

	return a, nil
}

func decodePairs(raw json.RawMessage) ([]orb.Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("coordinates are not pairs: %w", ErrArityMismatch)
	}
	pts := make([]orb.Point, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("vertex %d has %d components: %w", i, len(p), ErrArityMismatch)
		}
		pts[i] = orb.Point{p[0], p[1]}
	}
	return pts, nil
}

// Skipped reports one record dropped during a bulk decode.
type Skipped struct {
	Index int
	Err   error
}

// DecodeAll decodes a batch, skipping malformed records rather than
// failing the batch.
func DecodeAll(recs []Record) ([]annotation.Annotation, []Skipped) {
	var anns []annotation.Annotation
	var skipped []Skipped
	for i, rec := range recs {
		a, err := Decode(rec)
		if err != nil {
			slog.Warn("skipping malformed interchange record",
				slog.Int("index", i),
				slog.String("id", rec.ID),
				slog.String("error", err.Error()))
			skipped = append(skipped, Skipped{Index: i, Err: err})
			continue
		}
		anns = append(anns, a)
	}
	return anns, skipped
}

// WriteAll exports annotations as a JSON array of records.
func WriteAll(w io.Writer, anns []annotation.Annotation) error {
	recs := make([]Record, 0, len(anns))
	for _, a := range anns {
		rec, err := Encode(a)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", a.ID, err)
		}
		recs = append(recs, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// ReadAll parses a JSON array of records.
func ReadAll(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("parsing interchange document: %w", err)
	}
	return recs, nil
}
