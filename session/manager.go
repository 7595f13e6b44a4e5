// Package session ties one client's use of one tool to a batch
// pipeline. Sessions expire on a TTL; expiry (like explicit deletion)
// clears the batch so every stored artifact is released.
package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/lithammer/shortuuid/v4"

	"convkit/pipeline"
	"convkit/tools"
)

type Session struct {
	ID        string
	Tool      tools.Tool
	Batch     *pipeline.Batch
	CreatedAt time.Time
}

type Manager struct {
	registry *tools.Registry
	cache    *ttlcache.Cache[string, *Session]
}

func NewManager(registry *tools.Registry, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Session](ttl),
	)
	cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		s := item.Value()
		log.Printf("Session %s expired, releasing %d queued items", s.ID, s.Batch.Len())
		s.Batch.ClearAll()
	})
	return &Manager{registry: registry, cache: cache}
}

// Start launches TTL expiry in the background.
func (m *Manager) Start() {
	go m.cache.Start()
}

func (m *Manager) Stop() {
	m.cache.Stop()
}

// Create opens a new session for the named tool.
func (m *Manager) Create(toolName string) (*Session, error) {
	tool, err := m.registry.Get(toolName)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        shortuuid.New(),
		Tool:      tool,
		Batch:     pipeline.NewBatch(tool.Policy),
		CreatedAt: time.Now(),
	}
	m.cache.Set(s.ID, s, ttlcache.DefaultTTL)
	log.Printf("Session %s created for tool %s", s.ID, tool.Name)
	return s, nil
}

// Get looks a session up, refreshing its TTL.
func (m *Manager) Get(id string) (*Session, error) {
	item := m.cache.Get(id)
	if item == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return item.Value(), nil
}

// Delete ends a session. The eviction hook clears the batch.
func (m *Manager) Delete(id string) error {
	if m.cache.Get(id, ttlcache.WithDisableTouchOnHit[string, *Session]()) == nil {
		return fmt.Errorf("session %s not found", id)
	}
	m.cache.Delete(id)
	return nil
}
