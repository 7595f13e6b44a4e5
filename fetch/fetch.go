// Package fetch resolves a user-supplied URL into an input file, under
// the same size policy as local uploads. Fetch failures reject the
// input outright; they never become queue items.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

var (
	ErrTypeMismatch = errors.New("remote content type does not match the expected type")
	ErrTooLarge     = errors.New("remote file exceeds the size limit")
)

type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher builds a fetcher with a bounded timeout. A remote call
// without one can leave a tool session waiting forever.
func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

// Result is the fetched payload plus the verified content type, ready
// to be handed to the same admission path as a local upload.
type Result struct {
	Name string
	Type string
	Data []byte
}

// Fetch downloads url and verifies it against wantType ("image/webp",
// "image/*", ...). wantType may be empty to accept anything. maxSize
// caps the download for this call; pass 0 to use the fetcher default.
// Callers with a stricter per-file limit than the transport cap must
// pass it here so an oversized payload is refused before admission.
func (f *Fetcher) Fetch(ctx context.Context, url, wantType string, maxSize int64) (*Result, error) {
	if maxSize <= 0 || maxSize > f.maxSize {
		maxSize = f.maxSize
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("unsupported URL scheme in %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL, status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if !typeMatches(contentType, wantType) {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, contentType, wantType)
	}

	// Read one byte past the cap so an oversized payload is detected
	// without buffering the whole thing.
	limited := &io.LimitedReader{R: resp.Body, N: maxSize + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote file: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxSize)
	}

	return &Result{
		Name: remoteName(url, contentType),
		Type: contentType,
		Data: data,
	}, nil
}

func typeMatches(got, want string) bool {
	if want == "" {
		return true
	}
	got = strings.ToLower(got)
	want = strings.ToLower(want)
	if strings.HasSuffix(want, "/*") {
		return strings.HasPrefix(got, strings.TrimSuffix(want, "*"))
	}
	return got == want
}

// remoteName derives a display name for the fetched file, falling back
// to a synthetic one when the URL path has none.
func remoteName(url, contentType string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	base := path.Base(trimmed)
	if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
		return base
	}
	ext := ""
	if i := strings.IndexByte(contentType, '/'); i >= 0 {
		ext = "." + contentType[i+1:]
	}
	return "from-url" + ext
}
