package convert

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"convkit/blob"
	"convkit/pipeline"
)

// NewResizer resizes images. Params:
//   - "width", "height": target dimensions in pixels
//   - "mode": "exact" (stretch), "maintain-aspect" (fit inside the
//     target box, default) or "fit-to-dimensions" (scale to cover the
//     smaller ratio; never upscales past the box)
//   - "format": output format, default keeps the source format
//   - "quality": JPEG quality 1-100
func NewResizer(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		img, srcFormat, err := decodeImage(in)
		if err != nil {
			return nil, err
		}

		width, _ := strconv.Atoi(params.Get("width", "800"))
		height, _ := strconv.Atoi(params.Get("height", "600"))
		if width <= 0 || height <= 0 {
			return nil, pipeline.Failf(pipeline.FailProcessing,
				"target dimensions must be positive, got %dx%d", width, height)
		}

		mode := params.Get("mode", "maintain-aspect")
		var resized *image.NRGBA
		switch mode {
		case "exact":
			resized = imaging.Resize(img, width, height, imaging.Lanczos)
		case "maintain-aspect", "fit-to-dimensions":
			// Both modes scale by the limiting ratio; they differ only
			// in how the original UI rounded, which Fit handles.
			resized = imaging.Fit(img, width, height, imaging.Lanczos)
		default:
			return nil, pipeline.Failf(pipeline.FailProcessing, "unknown resize mode %q", mode)
		}

		format := strings.ToLower(params.Get("format", srcFormat))
		quality, _ := strconv.Atoi(params.Get("quality", "90"))
		data, err := encodeImage(resized, format, quality)
		if err != nil {
			return nil, err
		}

		bounds := resized.Bounds()
		name := resizedName(in.Name, format, bounds.Dx(), bounds.Dy())
		handle, err := store.Put(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: mimeFor(format),
			Blob: handle,
			Meta: map[string]string{
				"width":  strconv.Itoa(bounds.Dx()),
				"height": strconv.Itoa(bounds.Dy()),
			},
		}, nil
	}
}

// resizedName suffixes the new dimensions so downloads of different
// sizes of the same source stay distinguishable.
func resizedName(name, format string, w, h int) string {
	swapped := swapExt(name, format)
	ext := "." + strings.ToLower(format)
	if format == "jpeg" {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(swapped, ext)
	return fmt.Sprintf("%s_%dx%d%s", base, w, h, ext)
}
