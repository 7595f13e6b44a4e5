package convert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"convkit/blob"
	"convkit/pipeline"
)

// NewCompressor re-encodes images at a reduced quality. Params:
//   - "quality": 1-100, default 80
//   - "format": "auto" (keep source format, default) or an explicit
//     target format
//
// PNG is lossless, so quality is ignored for PNG output; the file is
// still re-encoded, which strips ancillary chunks.
func NewCompressor(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		img, srcFormat, err := decodeImage(in)
		if err != nil {
			return nil, err
		}

		format := strings.ToLower(params.Get("format", "auto"))
		if format == "auto" {
			format = srcFormat
		}
		quality, _ := strconv.Atoi(params.Get("quality", "80"))

		data, err := encodeImage(img, format, quality)
		if err != nil {
			return nil, err
		}

		name := swapExt(in.Name, format)
		handle, err := store.Put(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: mimeFor(format),
			Blob: handle,
			Meta: map[string]string{
				"originalSize":   strconv.FormatInt(in.Size(), 10),
				"compressedSize": strconv.Itoa(len(data)),
			},
		}, nil
	}
}
