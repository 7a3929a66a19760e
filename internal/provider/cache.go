package provider

import (
	"sync"
	"time"
)

// Cache is a TTL cache for one provider: resources keyed by (category, id)
// plus a single index slot. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	resources  map[cacheKey]cachedResource
	index      *Index
	indexAt    time.Time
	ContentTTL time.Duration
	IndexTTL   time.Duration
	hits       int64
	misses     int64
}

type cacheKey struct {
	cat Category
	id  string
}

type cachedResource struct {
	res      *Resource
	storedAt time.Time
}

// NewCache creates a cache with the given TTLs.
func NewCache(contentTTL, indexTTL time.Duration) *Cache {
	return &Cache{
		resources:  make(map[cacheKey]cachedResource),
		ContentTTL: contentTTL,
		IndexTTL:   indexTTL,
	}
}

// GetResource returns a cached resource if present and fresh.
func (c *Cache) GetResource(id string, cat Category) (*Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.resources[cacheKey{cat, id}]
	if !ok || time.Since(entry.storedAt) > c.ContentTTL {
		if ok {
			delete(c.resources, cacheKey{cat, id})
		}
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.res, true
}

// PutResource stores a freshly fetched resource.
func (c *Cache) PutResource(res *Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[cacheKey{res.Category, res.ID}] = cachedResource{res: res, storedAt: time.Now()}
}

// GetIndex returns the cached index if fresh.
func (c *Cache) GetIndex() (*Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil || time.Since(c.indexAt) > c.IndexTTL {
		c.misses++
		return nil, false
	}
	c.hits++
	return c.index, true
}

// PutIndex stores a freshly built index.
func (c *Cache) PutIndex(idx *Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = idx
	c.indexAt = time.Now()
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = make(map[cacheKey]cachedResource)
	c.index = nil
	c.hits = 0
	c.misses = 0
}

// Size returns the number of cached resources.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resources)
}
