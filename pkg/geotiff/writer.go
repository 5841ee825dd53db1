package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/jpfielding/geoview.go/pkg/geotiff/tag"
)

// WriteFile encodes a raster to a container file on disk.
func WriteFile(path string, img *RasterImage) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Write(f, img)
}

// Write encodes a raster as a little-endian, single-strip, uncompressed
// container. Geospatial tags are emitted only when the raster is
// georeferenced, so a round-trip preserves the plain-raster fallback.
func Write(w io.Writer, img *RasterImage) (int64, error) {
	data, err := Encode(img)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ifdField is one directory entry staged for writing.
type ifdField struct {
	id    tag.ID
	ftype uint16
	count uint32
	// inline payload, padded to 4 bytes, or nil when external holds the value
	inline   []byte
	external []byte
}

// Encode serializes the raster container to a byte slice.
func Encode(img *RasterImage) ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("geotiff: invalid dimensions %dx%d", img.Width, img.Height)
	}
	bands := img.BandCount()
	if bands == 0 {
		return nil, fmt.Errorf("geotiff: no bands")
	}
	if img.BitsPerSample != 8 && img.BitsPerSample != 16 {
		return nil, fmt.Errorf("geotiff: unsupported bit depth %d", img.BitsPerSample)
	}
	for b, buf := range img.Bands {
		if len(buf) != img.Width*img.Height {
			return nil, fmt.Errorf("geotiff: band %d has %d samples, want %d", b, len(buf), img.Width*img.Height)
		}
	}

	order := binary.LittleEndian
	strip := interleave(img, order)

	photometric := uint16(1) // BlackIsZero
	if bands >= 3 {
		photometric = 2 // RGB
	}

	fields := []ifdField{
		longField(tag.ImageWidth, uint32(img.Width)),
		longField(tag.ImageLength, uint32(img.Height)),
		shortsField(tag.BitsPerSample, repeatShort(uint16(img.BitsPerSample), bands), order),
		shortField(tag.Compression, tag.CompressionNone),
		shortField(tag.PhotometricInterpretation, photometric),
		longField(tag.StripOffsets, 0), // patched once the layout is known
		shortField(tag.SamplesPerPixel, uint16(bands)),
		longField(tag.RowsPerStrip, uint32(img.Height)),
		longField(tag.StripByteCounts, uint32(len(strip))),
		shortField(tag.PlanarConfiguration, 1),
	}

	if img.IsGeoReferenced {
		sx := (img.Extent.Max[0] - img.Extent.Min[0]) / float64(img.Width)
		sy := (img.Extent.Max[1] - img.Extent.Min[1]) / float64(img.Height)
		fields = append(fields,
			doublesField(tag.ModelPixelScale, []float64{sx, sy, 0}, order),
			doublesField(tag.ModelTiepoint, []float64{0, 0, 0, img.Extent.Min[0], img.Extent.Max[1], 0}, order),
		)
		if img.EPSG != 0 {
			key := tag.ProjectedCSTypeGeoKey
			if img.EPSG == 4326 {
				key = tag.GeographicTypeGeoKey
			}
			fields = append(fields, shortsField(tag.GeoKeyDirectory,
				[]uint16{1, 1, 0, 1, key, 0, 1, uint16(img.EPSG)}, order))
		}
	}

	// IFD entries must be sorted by tag id.
	sort.Slice(fields, func(i, j int) bool { return fields[i].id < fields[j].id })

	// Layout: header | IFD | external values | strip data.
	ifdStart := uint32(8)
	ifdSize := uint32(2 + len(fields)*12 + 4)
	extStart := ifdStart + ifdSize
	extSize := uint32(0)
	for _, f := range fields {
		extSize += uint32(len(f.external))
	}
	stripStart := extStart + extSize

	for i := range fields {
		if fields[i].id == tag.StripOffsets {
			fields[i] = longField(tag.StripOffsets, stripStart)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, order, uint16(42))
	binary.Write(&buf, order, ifdStart)

	binary.Write(&buf, order, uint16(len(fields)))
	extOffset := extStart
	for _, f := range fields {
		binary.Write(&buf, order, uint16(f.id))
		binary.Write(&buf, order, f.ftype)
		binary.Write(&buf, order, f.count)
		if f.external != nil {
			binary.Write(&buf, order, extOffset)
			extOffset += uint32(len(f.external))
		} else {
			buf.Write(f.inline)
		}
	}
	binary.Write(&buf, order, uint32(0)) // no next IFD

	for _, f := range fields {
		buf.Write(f.external)
	}
	buf.Write(strip)

	return buf.Bytes(), nil
}

// interleave packs per-band buffers into one chunky strip.
func interleave(img *RasterImage, order binary.ByteOrder) []byte {
	bands := img.BandCount()
	bytesPerSample := img.BitsPerSample / 8
	out := make([]byte, img.Width*img.Height*bands*bytesPerSample)
	pos := 0
	for i := 0; i < img.Width*img.Height; i++ {
		for b := 0; b < bands; b++ {
			s := img.Bands[b][i]
			if bytesPerSample == 2 {
				order.PutUint16(out[pos:], s)
				pos += 2
			} else {
				out[pos] = byte(s)
				pos++
			}
		}
	}
	return out
}

func longField(id tag.ID, v uint32) ifdField {
	inline := make([]byte, 4)
	binary.LittleEndian.PutUint32(inline, v)
	return ifdField{id: id, ftype: typeLong, count: 1, inline: inline}
}

func shortField(id tag.ID, v uint16) ifdField {
	inline := make([]byte, 4)
	binary.LittleEndian.PutUint16(inline, v)
	return ifdField{id: id, ftype: typeShort, count: 1, inline: inline}
}

func shortsField(id tag.ID, vs []uint16, order binary.ByteOrder) ifdField {
	f := ifdField{id: id, ftype: typeShort, count: uint32(len(vs))}
	raw := make([]byte, 2*len(vs))
	for i, v := range vs {
		order.PutUint16(raw[i*2:], v)
	}
	if len(raw) <= 4 {
		f.inline = append(raw, make([]byte, 4-len(raw))...)
	} else {
		f.external = raw
	}
	return f
}

func doublesField(id tag.ID, vs []float64, order binary.ByteOrder) ifdField {
	f := ifdField{id: id, ftype: typeDouble, count: uint32(len(vs))}
	raw := make([]byte, 8*len(vs))
	for i, v := range vs {
		order.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	f.external = raw
	return f
}

func repeatShort(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}
