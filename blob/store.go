// Package blob stores conversion output payloads behind explicitly
// released handles, so that temp files (or any other backing resource)
// are freed when a queue item is removed rather than whenever the
// garbage collector gets around to it.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Handle is one stored payload. Release frees the backing resource;
// reading after Release is an error.
type Handle interface {
	Open() (io.ReadCloser, error)
	Size() int64
	Release() error
}

// Store writes payloads and hands back releasable handles.
type Store interface {
	Put(name string, data []byte) (Handle, error)
}

// FileStore keeps payloads as files under a temp directory.
type FileStore struct {
	dir string
	seq int
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "convkit_")
		if err != nil {
			return nil, fmt.Errorf("could not create temp directory: %w", err)
		}
		dir = tmp
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create blob directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory payload files are written under.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Put(name string, data []byte) (Handle, error) {
	s.mu.Lock()
	s.seq++
	n := s.seq
	s.mu.Unlock()

	// Sequence prefix keeps same-named outputs from clobbering each other.
	path := filepath.Join(s.dir, fmt.Sprintf("%06d_%s", n, filepath.Base(name)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	return &fileHandle{path: path, size: int64(len(data))}, nil
}

type fileHandle struct {
	path     string
	size     int64
	mu       sync.Mutex
	released bool
}

func (h *fileHandle) Open() (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, fmt.Errorf("blob already released: %s", h.path)
	}
	return os.Open(h.path)
}

func (h *fileHandle) Size() int64 { return h.size }

func (h *fileHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	return os.Remove(h.path)
}

// MemStore keeps payloads in memory. Used by tools whose outputs are
// small (hashes, formatted JSON) and by tests.
type MemStore struct{}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Put(name string, data []byte) (Handle, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &memHandle{name: name, data: buf}, nil
}

type memHandle struct {
	name     string
	data     []byte
	mu       sync.Mutex
	released bool
}

func (h *memHandle) Open() (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, fmt.Errorf("blob already released: %s", h.name)
	}
	return io.NopCloser(bytes.NewReader(h.data)), nil
}

func (h *memHandle) Size() int64 { return int64(len(h.data)) }

func (h *memHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.data = nil
	return nil
}
