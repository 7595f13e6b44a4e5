// Package gallery serves the photo portfolio: a directory of images
// listed with their dimensions, plus on-demand thumbnails. Which photo
// a client has open is the client's business; no viewer state lives
// here.
package gallery

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type Photo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int64  `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Gallery struct {
	dir string

	mu     sync.Mutex
	thumbs map[string][]byte
}

func New(dir string) *Gallery {
	return &Gallery{dir: dir, thumbs: make(map[string][]byte)}
}

// List scans the gallery directory, name-sorted. A missing directory
// is an empty gallery, not an error.
func (g *Gallery) List() ([]Photo, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Photo{}, nil
		}
		return nil, fmt.Errorf("could not read gallery directory: %w", err)
	}

	photos := make([]Photo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mimeType, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		p := Photo{Name: e.Name(), Type: mimeType, Size: info.Size()}
		if data, err := os.ReadFile(filepath.Join(g.dir, e.Name())); err == nil {
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				p.Width = cfg.Width
				p.Height = cfg.Height
			}
		}
		photos = append(photos, p)
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].Name < photos[j].Name })
	return photos, nil
}

// Open returns the original photo bytes and media type. The name is
// restricted to a bare file name to keep reads inside the gallery dir.
func (g *Gallery) Open(name string) ([]byte, string, error) {
	if filepath.Base(name) != name {
		return nil, "", fmt.Errorf("invalid photo name")
	}
	mimeType, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, "", fmt.Errorf("not a gallery image: %s", name)
	}
	data, err := os.ReadFile(filepath.Join(g.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("photo not found: %s", name)
		}
		return nil, "", err
	}
	return data, mimeType, nil
}

// Thumbnail returns a JPEG thumbnail fitting 300x300, generated once
// per photo and cached in memory for the process lifetime.
func (g *Gallery) Thumbnail(name string) ([]byte, error) {
	g.mu.Lock()
	if cached, ok := g.thumbs[name]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	data, _, err := g.Open(name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", name, err)
	}

	thumb := imaging.Fit(img, 300, 300, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("thumbnail encode failed: %w", err)
	}

	g.mu.Lock()
	g.thumbs[name] = buf.Bytes()
	g.mu.Unlock()
	return buf.Bytes(), nil
}
