package convert

import (
	"context"
	"fmt"
	"strconv"

	"convkit/blob"
	"convkit/pipeline"
)

// NewFormatConverter converts any decodable image to targetFormat.
// Params: "quality" (1-100, JPEG only). The target format is fixed per
// tool, matching the one-direction converters the toolbox exposes.
func NewFormatConverter(store blob.Store, targetFormat string) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		img, _, err := decodeImage(in)
		if err != nil {
			return nil, err
		}

		quality, _ := strconv.Atoi(params.Get("quality", "92"))
		data, err := encodeImage(img, targetFormat, quality)
		if err != nil {
			return nil, err
		}

		name := swapExt(in.Name, targetFormat)
		handle, err := store.Put(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}

		bounds := img.Bounds()
		return &pipeline.Artifact{
			Name: name,
			Type: mimeFor(targetFormat),
			Blob: handle,
			Meta: map[string]string{
				"width":  strconv.Itoa(bounds.Dx()),
				"height": strconv.Itoa(bounds.Dy()),
			},
		}, nil
	}
}
