// Package geotiff decodes and encodes the tagged raster container used by
// the viewer: a baseline TIFF subset with optional GeoTIFF referencing tags.
//
// The decoder handles arbitrary band counts, 8/16-bit unsigned samples,
// uncompressed, LZW and Deflate strips, and both byte orders. A container
// without geospatial tags decodes as a plain raster with
// IsGeoReferenced=false; that is a supported configuration, not an error.
//
// Basic usage:
//
//	img, err := geotiff.ReadFile("/path/to/scene.tif")
//	if err != nil {
//		log.Fatal(err)
//	}
//	nir := img.Band(3)
//	if img.IsGeoReferenced {
//		fmt.Println(img.CRS(), img.Extent)
//	}
package geotiff

import (
	"fmt"
	"io"
	"os"
)

// ReadFile reads a raster container from disk.
func ReadFile(path string) (*RasterImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return Decode(data)
}

// ReadBuffer decodes a raster container from a byte slice.
func ReadBuffer(data []byte) (*RasterImage, error) {
	return Decode(data)
}
