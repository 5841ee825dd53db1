// Package tag defines the TIFF/GeoTIFF tag identifiers understood by the decoder
package tag

// ID is a TIFF tag identifier as it appears in an IFD entry.
type ID uint16

// Baseline TIFF tags
const (
	ImageWidth                ID = 256
	ImageLength               ID = 257
	BitsPerSample             ID = 258
	Compression               ID = 259
	PhotometricInterpretation ID = 262
	StripOffsets              ID = 273
	SamplesPerPixel           ID = 277
	RowsPerStrip              ID = 278
	StripByteCounts           ID = 279
	PlanarConfiguration       ID = 284
	SampleFormat              ID = 339
)

// GeoTIFF tags
const (
	ModelPixelScale     ID = 33550
	ModelTiepoint       ID = 33922
	GeoKeyDirectory     ID = 34735
	GeoDoubleParams     ID = 34736
	GeoASCIIParams      ID = 34737
	ModelTransformation ID = 34264
)

// GeoKey identifiers carried inside the GeoKeyDirectory tag.
const (
	GeographicTypeGeoKey  uint16 = 2048
	ProjectedCSTypeGeoKey uint16 = 3072
)

// Compression scheme values for the Compression tag.
const (
	CompressionNone    uint16 = 1
	CompressionLZW     uint16 = 5
	CompressionDeflate uint16 = 8
)

// IsGeo returns true for tags that carry geospatial referencing data.
func (id ID) IsGeo() bool {
	switch id {
	case ModelPixelScale, ModelTiepoint, GeoKeyDirectory, GeoDoubleParams, GeoASCIIParams, ModelTransformation:
		return true
	}
	return false
}

// Name returns a human-readable name for known tags.
func (id ID) Name() string {
	switch id {
	case ImageWidth:
		return "ImageWidth"
	case ImageLength:
		return "ImageLength"
	case BitsPerSample:
		return "BitsPerSample"
	case Compression:
		return "Compression"
	case PhotometricInterpretation:
		return "PhotometricInterpretation"
	case StripOffsets:
		return "StripOffsets"
	case SamplesPerPixel:
		return "SamplesPerPixel"
	case RowsPerStrip:
		return "RowsPerStrip"
	case StripByteCounts:
		return "StripByteCounts"
	case PlanarConfiguration:
		return "PlanarConfiguration"
	case SampleFormat:
		return "SampleFormat"
	case ModelPixelScale:
		return "ModelPixelScale"
	case ModelTiepoint:
		return "ModelTiepoint"
	case GeoKeyDirectory:
		return "GeoKeyDirectory"
	case GeoDoubleParams:
		return "GeoDoubleParams"
	case GeoASCIIParams:
		return "GeoASCIIParams"
	case ModelTransformation:
		return "ModelTransformation"
	}
	return "Unknown"
}
