// Package convert holds the per-tool conversion functions. Each
// constructor returns a pipeline.ConvertFunc closed over the blob store
// it writes artifacts to.
package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"convkit/pipeline"
)

// encodable formats in this environment. WebP/AVIF/HEIC have no Go
// encoder here; asking for them is an environment capability miss, not
// a bad input, and is reported as such.
var encoders = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"jpg":  imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"tiff": imaging.TIFF,
	"tif":  imaging.TIFF,
	"bmp":  imaging.BMP,
}

var mimeByFormat = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"avif": "image/avif",
	"ico":  "image/x-icon",
}

func decodeImage(in pipeline.File) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return nil, "", pipeline.Failf(pipeline.FailDecode, "could not decode %q as an image: %v", in.Name, err)
	}
	return img, format, nil
}

// encodeImage renders img in the requested format. JPEG output is
// flattened onto a white background first, since the source may carry
// an alpha channel JPEG cannot represent.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	format = strings.ToLower(format)
	f, ok := encoders[format]
	if !ok {
		return nil, pipeline.Failf(pipeline.FailEncodeUnsupported,
			"no %s encoder is available in this environment", format)
	}

	if f == imaging.JPEG {
		img = flattenOnWhite(img)
	}

	var opts []imaging.EncodeOption
	if f == imaging.JPEG {
		if quality <= 0 || quality > 100 {
			quality = 92
		}
		opts = append(opts, imaging.JPEGQuality(quality))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f, opts...); err != nil {
		return nil, pipeline.Failf(pipeline.FailProcessing, "%s encode failed: %v", format, err)
	}
	return buf.Bytes(), nil
}

func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

// swapExt replaces the file name's extension with the target format's.
func swapExt(name, format string) string {
	ext := "." + strings.ToLower(format)
	if format == "jpeg" {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "converted"
	}
	return base + ext
}

func mimeFor(format string) string {
	if m, ok := mimeByFormat[strings.ToLower(format)]; ok {
		return m
	}
	return "application/octet-stream"
}
