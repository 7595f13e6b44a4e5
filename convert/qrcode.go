package convert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"convkit/blob"
	"convkit/pipeline"
)

var qrLevels = map[string]qrcode.RecoveryLevel{
	"L": qrcode.Low,
	"M": qrcode.Medium,
	"Q": qrcode.High,
	"H": qrcode.Highest,
}

// NewQRGenerator encodes the input's text content as a QR PNG. Params:
//   - "size": output edge length in pixels, default 256
//   - "level": error correction level L/M/Q/H, default M
func NewQRGenerator(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		text := strings.TrimSpace(string(in.Data))
		if text == "" {
			return nil, pipeline.Failf(pipeline.FailProcessing, "nothing to encode: input is empty")
		}

		level, ok := qrLevels[strings.ToUpper(params.Get("level", "M"))]
		if !ok {
			return nil, pipeline.Failf(pipeline.FailProcessing,
				"error correction level must be one of L, M, Q, H")
		}
		size, _ := strconv.Atoi(params.Get("size", "256"))
		if size <= 0 {
			size = 256
		}

		png, err := qrcode.Encode(text, level, size)
		if err != nil {
			return nil, pipeline.Failf(pipeline.FailProcessing, "QR encode failed: %v", err)
		}

		name := swapExt(in.Name, "png")
		handle, err := store.Put(name, png)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: "image/png",
			Blob: handle,
			Meta: map[string]string{"size": strconv.Itoa(size)},
		}, nil
	}
}
