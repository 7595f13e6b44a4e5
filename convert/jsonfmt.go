package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"convkit/blob"
	"convkit/pipeline"
)

// NewJSONFormatter reformats a JSON document. Params:
//   - "mode": "prettify" (default), "minify", "validate", "escape" or "unescape"
//   - "indent": spaces per level when prettifying, default 2
//
// Escape turns arbitrary text into a JSON string literal; unescape does the
// reverse. Both work on the raw input and do not require it to be a JSON
// document. The remaining modes fail with decode_failed on invalid JSON.
func NewJSONFormatter(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		mode := params.Get("mode", "prettify")
		outType := "application/json"

		var out bytes.Buffer
		switch mode {
		case "escape":
			escaped, err := json.Marshal(string(in.Data))
			if err != nil {
				return nil, pipeline.Failf(pipeline.FailProcessing, "could not escape input: %v", err)
			}
			out.Write(escaped)
		case "unescape":
			var unescaped string
			if err := json.Unmarshal(bytes.TrimSpace(in.Data), &unescaped); err != nil {
				return nil, pipeline.Failf(pipeline.FailDecode, "%q is not a JSON string literal", in.Name)
			}
			out.WriteString(unescaped)
			outType = "text/plain"
		case "prettify", "minify", "validate":
			if !json.Valid(in.Data) {
				return nil, pipeline.Failf(pipeline.FailDecode, "%q is not valid JSON", in.Name)
			}
			switch mode {
			case "prettify":
				indent, _ := strconv.Atoi(params.Get("indent", "2"))
				if indent <= 0 || indent > 8 {
					indent = 2
				}
				if err := json.Indent(&out, in.Data, "", strings.Repeat(" ", indent)); err != nil {
					return nil, pipeline.Failf(pipeline.FailDecode, "could not format JSON: %v", err)
				}
			case "minify":
				if err := json.Compact(&out, in.Data); err != nil {
					return nil, pipeline.Failf(pipeline.FailDecode, "could not minify JSON: %v", err)
				}
			case "validate":
				out.WriteString("valid JSON")
				outType = "text/plain"
			}
		default:
			return nil, pipeline.Failf(pipeline.FailProcessing, "unknown format mode %q", mode)
		}

		name := swapExt(in.Name, "json")
		if outType == "text/plain" {
			name = swapExt(in.Name, "txt")
		}
		handle, err := store.Put(name, out.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: outType,
			Blob: handle,
		}, nil
	}
}
