// Package cache provides a TTL cache with tag-based grouped eviction.
// Sync controllers tag what they cache and evict the tag after every write,
// so reads never outlive the store state they were derived from.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// defaultCleanup is how often expired entries are purged from memory.
const defaultCleanup = 10 * time.Minute

// Cache implements interfaces.Cache on top of go-cache, adding a tag index
// for grouped eviction.
type Cache struct {
	store *gocache.Cache

	mu   sync.Mutex
	tags map[string]map[string]struct{} // tag -> set of keys
}

// New creates an empty cache. Per-entry TTLs are passed on Set; there is no
// global default expiration.
func New() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, defaultCleanup),
		tags:  make(map[string]map[string]struct{}),
	}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

func (c *Cache) Set(key string, value any, ttl time.Duration, tags ...string) {
	c.store.Set(key, value, ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// EvictTag drops every entry recorded under the tag. Keys whose entries
// already expired are deleted harmlessly.
func (c *Cache) EvictTag(tag string) {
	c.mu.Lock()
	keys := c.tags[tag]
	delete(c.tags, tag)
	c.mu.Unlock()

	for key := range keys {
		c.store.Delete(key)
	}
}
