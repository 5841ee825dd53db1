package geotiff

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/tiff/lzw"

	"github.com/jpfielding/geoview.go/pkg/geotiff/tag"
)

// field types used in IFD entries
const (
	typeByte   uint16 = 1
	typeASCII  uint16 = 2
	typeShort  uint16 = 3
	typeLong   uint16 = 4
	typeFloat  uint16 = 11
	typeDouble uint16 = 12
)

var typeSize = map[uint16]int{
	typeByte:   1,
	typeASCII:  1,
	typeShort:  2,
	typeLong:   4,
	typeFloat:  4,
	typeDouble: 8,
}

// entry is one parsed IFD entry with its values already materialized.
type entry struct {
	id     tag.ID
	ftype  uint16
	count  uint32
	ints   []uint64
	floats []float64
}

// Reader decodes the tagged raster container from an in-memory byte stream.
// The decoder performs no disk or network I/O of its own.
type Reader struct {
	data  []byte
	order binary.ByteOrder
	tags  map[tag.ID]*entry
}

// NewReader creates a reader over a raw container byte stream.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, tags: make(map[tag.ID]*entry)}
}

// Parse reads a complete container from r and decodes it.
func Parse(r io.Reader) (*RasterImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, truncated("reading stream: %v", err)
	}
	return Decode(data)
}

// Decode parses the container and returns the raster descriptor with all
// band buffers populated.
func Decode(data []byte) (*RasterImage, error) {
	return NewReader(data).Read()
}

// Read decodes the container.
func (r *Reader) Read() (*RasterImage, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}

	img, err := r.buildDescriptor()
	if err != nil {
		return nil, err
	}

	if err := r.readSamples(img); err != nil {
		return nil, err
	}

	r.readGeoReference(img)
	return img, nil
}

// readHeader validates the byte-order mark, magic number and first IFD.
func (r *Reader) readHeader() error {
	if len(r.data) < 8 {
		return malformed("stream too short for header: %d bytes", len(r.data))
	}

	switch string(r.data[:2]) {
	case "II":
		r.order = binary.LittleEndian
	case "MM":
		r.order = binary.BigEndian
	default:
		return malformed("bad byte-order mark %q", r.data[:2])
	}

	if r.order.Uint16(r.data[2:4]) != 42 {
		return malformed("bad magic number")
	}

	ifdOffset := r.order.Uint32(r.data[4:8])
	return r.readIFD(ifdOffset)
}

// readIFD parses the first image file directory. Overview IFDs, if any,
// are ignored.
func (r *Reader) readIFD(offset uint32) error {
	if int(offset)+2 > len(r.data) {
		return malformed("IFD offset %d beyond stream", offset)
	}

	n := int(r.order.Uint16(r.data[offset : offset+2]))
	pos := int(offset) + 2
	if pos+n*12 > len(r.data) {
		return malformed("IFD with %d entries beyond stream", n)
	}

	for i := 0; i < n; i++ {
		e, err := r.readEntry(r.data[pos : pos+12])
		if err != nil {
			return err
		}
		if e != nil {
			r.tags[e.id] = e
		}
		pos += 12
	}
	return nil
}

// readEntry parses one 12-byte IFD entry, following the value offset when
// the payload does not fit inline. Entries with unknown field types are
// skipped rather than failing the decode.
func (r *Reader) readEntry(raw []byte) (*entry, error) {
	e := &entry{
		id:    tag.ID(r.order.Uint16(raw[0:2])),
		ftype: r.order.Uint16(raw[2:4]),
		count: r.order.Uint32(raw[4:8]),
	}

	size, ok := typeSize[e.ftype]
	if !ok {
		slog.Debug("skipping IFD entry with unknown field type",
			slog.String("tag", e.id.Name()),
			slog.Int("type", int(e.ftype)))
		return nil, nil
	}

	total := size * int(e.count)
	var val []byte
	if total <= 4 {
		val = raw[8 : 8+total]
	} else {
		off := int(r.order.Uint32(raw[8:12]))
		if off+total > len(r.data) {
			return nil, malformed("tag %s value beyond stream", e.id.Name())
		}
		val = r.data[off : off+total]
	}

	for i := 0; i < int(e.count); i++ {
		v := val[i*size : (i+1)*size]
		switch e.ftype {
		case typeByte, typeASCII:
			e.ints = append(e.ints, uint64(v[0]))
		case typeShort:
			e.ints = append(e.ints, uint64(r.order.Uint16(v)))
		case typeLong:
			e.ints = append(e.ints, uint64(r.order.Uint32(v)))
		case typeFloat:
			e.floats = append(e.floats, float64(math.Float32frombits(r.order.Uint32(v))))
		case typeDouble:
			e.floats = append(e.floats, math.Float64frombits(r.order.Uint64(v)))
		}
	}
	return e, nil
}

func (r *Reader) intTag(id tag.ID) (uint64, bool) {
	e, ok := r.tags[id]
	if !ok || len(e.ints) == 0 {
		return 0, false
	}
	return e.ints[0], true
}

// buildDescriptor validates the structural tags and allocates band buffers.
func (r *Reader) buildDescriptor() (*RasterImage, error) {
	width, ok := r.intTag(tag.ImageWidth)
	if !ok || width == 0 {
		return nil, malformed("missing or zero ImageWidth")
	}
	height, ok := r.intTag(tag.ImageLength)
	if !ok || height == 0 {
		return nil, malformed("missing or zero ImageLength")
	}

	bands := uint64(1)
	if v, ok := r.intTag(tag.SamplesPerPixel); ok {
		// SamplesPerPixel is a SHORT; anything past that range is corrupt
		if v == 0 || v > 65535 {
			return nil, malformed("bad SamplesPerPixel %d", v)
		}
		bands = v
	}

	bits := uint64(8)
	if v, ok := r.intTag(tag.BitsPerSample); ok {
		bits = v
	}
	if bits != 8 && bits != 16 {
		return nil, unsupported("%d bits per sample", bits)
	}

	// Sample format, when present, must be unsigned integer for every band.
	if e, ok := r.tags[tag.SampleFormat]; ok {
		for _, f := range e.ints {
			if f != 1 {
				return nil, unsupported("sample format %d", f)
			}
		}
	}

	if v, ok := r.intTag(tag.PlanarConfiguration); ok && v != 1 {
		return nil, unsupported("planar configuration %d", v)
	}

	// No strip expands past this ratio under LZW or Deflate, so a declared
	// raster larger than that cannot be backed by this stream. The check
	// runs before any allocation; a crafted header must fail here, not in
	// make.
	const maxCompressionRatio = 1024
	limit := uint64(len(r.data)) * maxCompressionRatio
	pixels := width * height
	if pixels > limit || pixels*bands*(bits/8) > limit {
		return nil, malformed("%dx%d raster with %d bands exceeds %d-byte stream",
			width, height, bands, len(r.data))
	}

	img := &RasterImage{
		Width:         int(width),
		Height:        int(height),
		BitsPerSample: int(bits),
		Bands:         make([][]uint16, bands),
	}
	for b := range img.Bands {
		img.Bands[b] = make([]uint16, img.Width*img.Height)
	}
	return img, nil
}

// readSamples walks the strips, decompresses them as needed and
// de-interleaves chunky samples into per-band buffers.
func (r *Reader) readSamples(img *RasterImage) error {
	offsets, ok := r.tags[tag.StripOffsets]
	if !ok {
		return malformed("missing StripOffsets")
	}
	counts, ok := r.tags[tag.StripByteCounts]
	if !ok {
		return malformed("missing StripByteCounts")
	}
	if len(offsets.ints) != len(counts.ints) {
		return malformed("strip offset/count mismatch: %d vs %d", len(offsets.ints), len(counts.ints))
	}

	rowsPerStrip := uint64(img.Height)
	if v, ok := r.intTag(tag.RowsPerStrip); ok && v > 0 {
		rowsPerStrip = v
	}

	compression := tag.CompressionNone
	if v, ok := r.intTag(tag.Compression); ok {
		compression = uint16(v)
	}

	bands := img.BandCount()
	bytesPerSample := img.BitsPerSample / 8
	bytesPerRow := img.Width * bands * bytesPerSample

	row := 0
	for i := range offsets.ints {
		off, cnt := int(offsets.ints[i]), int(counts.ints[i])
		if off+cnt > len(r.data) {
			return truncated("strip %d beyond stream", i)
		}

		raw, err := decompressStrip(r.data[off:off+cnt], compression)
		if err != nil {
			return err
		}

		stripRows := int(rowsPerStrip)
		if row+stripRows > img.Height {
			stripRows = img.Height - row
		}
		if len(raw) < stripRows*bytesPerRow {
			return truncated("strip %d: %d bytes, need %d", i, len(raw), stripRows*bytesPerRow)
		}

		for sr := 0; sr < stripRows; sr++ {
			rowData := raw[sr*bytesPerRow : (sr+1)*bytesPerRow]
			dst := (row + sr) * img.Width
			for x := 0; x < img.Width; x++ {
				for b := 0; b < bands; b++ {
					s := rowData[(x*bands+b)*bytesPerSample:]
					if bytesPerSample == 2 {
						img.Bands[b][dst+x] = r.order.Uint16(s)
					} else {
						img.Bands[b][dst+x] = uint16(s[0])
					}
				}
			}
		}
		row += stripRows
	}

	if row < img.Height {
		return truncated("strips cover %d of %d rows", row, img.Height)
	}
	return nil
}

func decompressStrip(data []byte, compression uint16) ([]byte, error) {
	switch compression {
	case tag.CompressionNone:
		return data, nil
	case tag.CompressionLZW:
		rc := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, truncated("lzw strip: %v", err)
		}
		return out, nil
	case tag.CompressionDeflate:
		rc := flate.NewReader(bytes.NewReader(data))
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, truncated("deflate strip: %v", err)
		}
		return out, nil
	}
	return nil, unsupported("compression scheme %d", compression)
}

// readGeoReference derives the extent and CRS code from the geospatial
// tags. Absent or incomplete tags leave the image as a plain raster; that
// is a graceful fallback, never an error.
func (r *Reader) readGeoReference(img *RasterImage) {
	scale, hasScale := r.tags[tag.ModelPixelScale]
	tiepoint, hasTie := r.tags[tag.ModelTiepoint]
	if !hasScale || !hasTie || len(scale.floats) < 2 || len(tiepoint.floats) < 6 {
		slog.Debug("no geospatial tags, treating as plain raster")
		return
	}

	sx, sy := scale.floats[0], scale.floats[1]
	if sx <= 0 || sy <= 0 {
		return
	}

	// Tiepoint maps raster (i, j) to model (x, y); the model origin is the
	// top-left corner, so Y decreases with increasing row.
	px, py := tiepoint.floats[0], tiepoint.floats[1]
	gx, gy := tiepoint.floats[3], tiepoint.floats[4]
	originX := gx - px*sx
	originY := gy + py*sy

	img.Extent = orb.Bound{
		Min: orb.Point{originX, originY - float64(img.Height)*sy},
		Max: orb.Point{originX + float64(img.Width)*sx, originY},
	}
	img.IsGeoReferenced = true

	if dir, ok := r.tags[tag.GeoKeyDirectory]; ok {
		img.EPSG = epsgFromGeoKeys(dir.ints)
	}
}

// epsgFromGeoKeys scans a GeoKeyDirectory for the geographic or projected
// CRS code. Projected wins when both are present.
func epsgFromGeoKeys(keys []uint64) int {
	if len(keys) < 4 {
		return 0
	}
	n := int(keys[3])
	epsg := 0
	for i := 0; i < n; i++ {
		base := 4 + i*4
		if base+3 >= len(keys) {
			break
		}
		id, loc, value := uint16(keys[base]), keys[base+1], int(keys[base+3])
		if loc != 0 {
			continue
		}
		switch id {
		case tag.GeographicTypeGeoKey:
			if epsg == 0 {
				epsg = value
			}
		case tag.ProjectedCSTypeGeoKey:
			epsg = value
		}
	}
	return epsg
}
