package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"convkit/blob"
	"convkit/pipeline"
)

// NewMetadataExtractor reports what is known about an image: basic
// facts (format, dimensions, byte size) plus EXIF sections when the
// file carries them. The artifact is a JSON document. Absent EXIF is
// normal for PNG/WebP and is not an error.
func NewMetadataExtractor(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
		if err != nil {
			return nil, pipeline.Failf(pipeline.FailDecode, "could not read %q as an image: %v", in.Name, err)
		}

		report := map[string]interface{}{
			"file": map[string]interface{}{
				"name":   in.Name,
				"size":   in.Size(),
				"type":   in.Type,
				"format": format,
				"width":  cfg.Width,
				"height": cfg.Height,
			},
		}

		if x, err := exif.Decode(bytes.NewReader(in.Data)); err == nil {
			report["camera"] = exifSection(x, cameraFields)
			report["settings"] = exifSection(x, settingsFields)
			if lat, long, err := x.LatLong(); err == nil {
				report["location"] = map[string]interface{}{
					"latitude":  lat,
					"longitude": long,
					"mapsUrl":   fmt.Sprintf("https://www.google.com/maps?q=%f,%f", lat, long),
				}
			}
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}

		name := in.Name + ".metadata.json"
		handle, err := store.Put(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: "application/json",
			Blob: handle,
		}, nil
	}
}

var cameraFields = []exif.FieldName{
	exif.Make, exif.Model, exif.LensModel, exif.Software,
}

var settingsFields = []exif.FieldName{
	exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings,
	exif.FocalLength, exif.Flash, exif.WhiteBalance,
	exif.DateTimeOriginal, exif.Orientation,
}

func exifSection(x *exif.Exif, fields []exif.FieldName) map[string]string {
	section := make(map[string]string)
	for _, f := range fields {
		tag, err := x.Get(f)
		if err != nil {
			continue
		}
		section[string(f)] = strings.Trim(tag.String(), `"`)
	}
	return section
}
