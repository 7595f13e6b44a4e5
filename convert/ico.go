package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"

	"convkit/blob"
	"convkit/pipeline"
)

// NewIcoConverter wraps a PNG in a minimal single-entry ICO container.
// The PNG bytes are embedded as-is; only the ICONDIR header is built.
func NewIcoConverter(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
		if err != nil || format != "png" {
			return nil, pipeline.Failf(pipeline.FailDecode, "could not decode %q as a PNG image", in.Name)
		}

		data := encodeIco(in.Data, cfg.Width, cfg.Height)
		name := swapExt(in.Name, "ico")
		handle, err := store.Put(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: "image/x-icon",
			Blob: handle,
			Meta: map[string]string{
				"width":  fmt.Sprintf("%d", cfg.Width),
				"height": fmt.Sprintf("%d", cfg.Height),
			},
		}, nil
	}
}

// encodeIco assembles an ICO file holding one PNG-payload entry:
// 6-byte ICONDIR, one 16-byte ICONDIRENTRY, then the PNG bytes.
func encodeIco(png []byte, width, height int) []byte {
	const headerLen = 6 + 16

	// Dimension bytes saturate at 0, which ICO defines to mean 256.
	dim := func(v int) byte {
		if v >= 256 || v <= 0 {
			return 0
		}
		return byte(v)
	}

	buf := make([]byte, headerLen+len(png))
	le := binary.LittleEndian

	le.PutUint16(buf[0:], 0) // reserved
	le.PutUint16(buf[2:], 1) // type: icon
	le.PutUint16(buf[4:], 1) // image count

	buf[6] = dim(width)
	buf[7] = dim(height)
	buf[8] = 0 // color count
	buf[9] = 0 // reserved
	le.PutUint16(buf[10:], 1)  // planes
	le.PutUint16(buf[12:], 32) // bits per pixel
	le.PutUint32(buf[14:], uint32(len(png)))
	le.PutUint32(buf[18:], headerLen)

	copy(buf[headerLen:], png)
	return buf
}
