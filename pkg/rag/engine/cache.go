package engine

import (
	"sync"

	"manual-chatbot-be/internal/apperror"

	"github.com/patrickmn/go-cache"
)

// Cache maps session id to its engine so history and the open index survive
// across requests. Entries never expire; they leave only through Evict.
type Cache struct {
	mu      sync.Mutex
	engines *cache.Cache
	deps    *Deps
	cfg     Config
}

func NewCache(deps *Deps, cfg Config) *Cache {
	return &Cache{
		engines: cache.New(cache.NoExpiration, 0),
		deps:    deps,
		cfg:     cfg,
	}
}

// Get returns the session's engine, creating it on first use. Concurrent
// first calls get the same instance. The existence check runs under the same
// lock as Evict, so an engine is never cached for a session already evicted.
func (c *Cache) Get(sessionID string) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.deps.Sessions.Get(sessionID); !ok {
		return nil, apperror.NotFound("session %s not found", sessionID)
	}
	if x, found := c.engines.Get(sessionID); found {
		return x.(*Engine), nil
	}
	e := New(sessionID, c.deps, c.cfg)
	c.engines.Set(sessionID, e, cache.NoExpiration)
	return e, nil
}

// Evict forgets the session's engine and closes its index handle.
func (c *Cache) Evict(sessionID string) {
	c.mu.Lock()
	x, found := c.engines.Get(sessionID)
	c.engines.Delete(sessionID)
	c.mu.Unlock()

	if found {
		x.(*Engine).dropHandle()
	}
}

// Refresh keeps the engine and its history but reopens the index on the next
// question. Called after a processing run rebuilt the index.
func (c *Cache) Refresh(sessionID string) {
	c.mu.Lock()
	x, found := c.engines.Get(sessionID)
	c.mu.Unlock()

	if found {
		x.(*Engine).dropHandle()
	}
}

func (c *Cache) Len() int {
	return c.engines.ItemCount()
}
