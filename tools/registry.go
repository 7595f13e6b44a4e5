// Package tools binds each toolbox tool to its conversion policy:
// accepted input types, per-tool capacity and size caps, and the
// convert function. The caps mirror the limits each tool advertises.
package tools

import (
	"fmt"
	"sort"

	"convkit/blob"
	"convkit/convert"
	"convkit/pipeline"
)

const (
	mb = int64(1 << 20)
)

type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// FetchType is the content type the URL input path expects, empty
	// when the tool accepts no remote input.
	FetchType string `json:"fetchType,omitempty"`

	Policy pipeline.Policy `json:"-"`
}

type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds the full tool set over the given artifact store.
func NewRegistry(store blob.Store) *Registry {
	anyImage := []string{"image/*", ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

	list := []Tool{
		{
			Name:        "webp-to-jpg",
			Description: "Convert WebP images to JPG",
			FetchType:   "image/webp",
			Policy: pipeline.Policy{
				Accept:      []string{"image/webp", ".webp"},
				MaxItems:    20,
				MaxItemSize: 20 * mb,
				Convert:     convert.NewFormatConverter(store, "jpeg"),
			},
		},
		{
			Name:        "png-to-jpg",
			Description: "Convert PNG images to JPG",
			FetchType:   "image/png",
			Policy: pipeline.Policy{
				Accept:      []string{"image/png", ".png"},
				MaxItems:    20,
				MaxItemSize: 20 * mb,
				Convert:     convert.NewFormatConverter(store, "jpeg"),
			},
		},
		{
			Name:        "jpg-to-png",
			Description: "Convert JPG images to PNG",
			FetchType:   "image/jpeg",
			Policy: pipeline.Policy{
				Accept:      []string{"image/jpeg", ".jpg", ".jpeg"},
				MaxItems:    20,
				MaxItemSize: 20 * mb,
				Convert:     convert.NewFormatConverter(store, "png"),
			},
		},
		{
			Name:        "image-to-webp",
			Description: "Convert images to WebP (reports encoder availability)",
			FetchType:   "image/*",
			Policy: pipeline.Policy{
				Accept:      anyImage,
				MaxItems:    20,
				MaxItemSize: 20 * mb,
				Convert:     convert.NewFormatConverter(store, "webp"),
			},
		},
		{
			Name:        "png-to-ico",
			Description: "Wrap PNG images in an ICO container",
			FetchType:   "image/png",
			Policy: pipeline.Policy{
				Accept:      []string{"image/png", ".png"},
				MaxItems:    20,
				MaxItemSize: 5 * mb,
				Convert:     convert.NewIcoConverter(store),
			},
		},
		{
			Name:        "image-resizer",
			Description: "Resize images to target dimensions",
			FetchType:   "image/*",
			Policy: pipeline.Policy{
				Accept:      anyImage,
				MaxItems:    10,
				MaxItemSize: 20 * mb,
				Convert:     convert.NewResizer(store),
			},
		},
		{
			Name:        "image-compressor",
			Description: "Re-encode images at reduced quality",
			FetchType:   "image/*",
			Policy: pipeline.Policy{
				Accept:      anyImage,
				MaxItems:    20,
				MaxItemSize: 25 * mb,
				Convert:     convert.NewCompressor(store),
			},
		},
		{
			Name:        "image-metadata",
			Description: "Extract image dimensions and EXIF metadata",
			FetchType:   "image/*",
			Policy: pipeline.Policy{
				Accept:      anyImage,
				MaxItems:    10,
				MaxItemSize: 25 * mb,
				Convert:     convert.NewMetadataExtractor(store),
			},
		},
		{
			Name:        "hash-generator",
			Description: "Compute MD5/SHA digests of files or text",
			Policy: pipeline.Policy{
				// Hashing applies to any payload.
				MaxItems:    20,
				MaxItemSize: 100 * mb,
				Convert:     convert.NewHasher(store),
			},
		},
		{
			Name:        "qr-generator",
			Description: "Generate QR code PNGs from text",
			Policy: pipeline.Policy{
				Accept:      []string{"text/plain", ".txt"},
				MaxItems:    20,
				MaxItemSize: 4 * 1024,
				Convert:     convert.NewQRGenerator(store),
			},
		},
		{
			Name:        "json-formatter",
			Description: "Prettify or minify JSON documents",
			Policy: pipeline.Policy{
				Accept:      []string{"application/json", "text/plain", ".json", ".txt"},
				MaxItems:    20,
				MaxItemSize: 10 * mb,
				Convert:     convert.NewJSONFormatter(store),
			},
		},
		{
			Name:        "word-counter",
			Description: "Count words, characters and lines in text",
			Policy: pipeline.Policy{
				Accept:      []string{"text/plain", "text/*", ".txt", ".md"},
				MaxItems:    20,
				MaxItemSize: 10 * mb,
				Convert:     convert.NewWordCounter(store),
			},
		},
	}

	r := &Registry{tools: make(map[string]Tool, len(list))}
	for _, t := range list {
		r.tools[t.Name] = t
	}
	return r
}

func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("unknown tool %q", name)
	}
	return t, nil
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
