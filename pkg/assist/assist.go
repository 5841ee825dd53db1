// Package assist holds the AI collaborator boundaries: labeling
// suggestions merged into the annotation store, and change detection
// served as a read-only overlay. Both currently ship static placeholder
// implementations; the interfaces are the contract a real model service
// will slot into.
package assist

import (
	"context"
	"encoding/json"

	"github.com/jpfielding/geoview.go/pkg/interchange"
	"github.com/jpfielding/geoview.go/pkg/upload"
)

// Suggester proposes annotations for a stored raster.
type Suggester interface {
	Suggest(ctx context.Context, loc upload.Locator) ([]interchange.Record, error)
}

// Detection is one change-detection hit: interchange geometry plus the
// change classification.
type Detection struct {
	interchange.Record
	Classification string `json:"classification"`
}

// ChangeDetector compares two stored rasters and reports changed regions.
// Results are overlay-only; they are not merged into the primary store.
type ChangeDetector interface {
	Detect(ctx context.Context, before, after upload.Locator) ([]Detection, error)
}

// StaticSuggester returns a fixed suggestion set regardless of input.
type StaticSuggester struct{}

func (StaticSuggester) Suggest(_ context.Context, _ upload.Locator) ([]interchange.Record, error) {
	conf1, conf2 := 0.91, 0.78
	return []interchange.Record{
		{
			ID:          "suggest-1",
			Type:        interchange.TypeBBox,
			Label:       "building",
			Coordinates: json.RawMessage("[[120,80],[220,160]]"),
			Confidence:  &conf1,
		},
		{
			ID:          "suggest-2",
			Type:        interchange.TypePolygon,
			Label:       "water",
			Coordinates: json.RawMessage("[[10,10],[90,15],[70,60],[20,55]]"),
			Confidence:  &conf2,
		},
	}, nil
}

// StaticDetector returns a fixed change set regardless of input.
type StaticDetector struct{}

func (StaticDetector) Detect(_ context.Context, _, _ upload.Locator) ([]Detection, error) {
	conf := 0.83
	return []Detection{
		{
			Record: interchange.Record{
				ID:          "change-1",
				Type:        interchange.TypeBBox,
				Label:       "new structure",
				Coordinates: json.RawMessage("[[300,200],[380,270]]"),
				Confidence:  &conf,
			},
			Classification: "construction",
		},
	}, nil
}
