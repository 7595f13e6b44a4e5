package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"convkit/blob"
	"convkit/pipeline"
)

// NewWordCounter counts words, characters and lines in a text input
// and emits a small JSON report.
func NewWordCounter(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		text := string(in.Data)
		lines := 0
		if text != "" {
			lines = strings.Count(text, "\n")
			if !strings.HasSuffix(text, "\n") {
				lines++
			}
		}

		report := map[string]int{
			"words":      len(strings.Fields(text)),
			"characters": utf8.RuneCountInString(text),
			"bytes":      len(in.Data),
			"lines":      lines,
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}

		name := in.Name + ".counts.json"
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
