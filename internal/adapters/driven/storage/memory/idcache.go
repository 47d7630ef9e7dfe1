package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// Ensure RemoteIDCache implements the interface.
var _ driven.RemoteIDCache = (*RemoteIDCache)(nil)

// RemoteIDCache is an in-memory implementation of driven.RemoteIDCache.
type RemoteIDCache struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewRemoteIDCache creates a new in-memory remote-id cache.
func NewRemoteIDCache() *RemoteIDCache {
	return &RemoteIDCache{
		ids: make(map[string]string),
	}
}

// Get returns the cached id for a logical name.
func (c *RemoteIDCache) Get(_ context.Context, name string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok, nil
}

// Put stores or replaces the id for a logical name.
func (c *RemoteIDCache) Put(_ context.Context, name, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
	return nil
}

// Delete removes one entry. Absent entries are a no-op.
func (c *RemoteIDCache) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, name)
	return nil
}

// Clear removes all entries.
func (c *RemoteIDCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]string)
	return nil
}
