package cache

import (
	"sync"

	"delivery-trajectory-service/internal/domain"
)

// MemoryRouteCache is a bounded in-process route cache.
//
// Eviction is by insertion order: once capacity is reached the oldest
// inserted key is dropped, regardless of how recently it was read.
// Overwriting an existing key keeps its original position.
type MemoryRouteCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]domain.Path
	order    []string // insertion order, oldest first
	onEvict  func(key string)
}

func NewMemoryRouteCache(capacity int) *MemoryRouteCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryRouteCache{
		capacity: capacity,
		entries:  make(map[string]domain.Path, capacity),
		order:    make([]string, 0, capacity),
	}
}

// OnEvict registers a hook invoked (under the cache lock) for each evicted key.
func (c *MemoryRouteCache) OnEvict(fn func(key string)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

func (c *MemoryRouteCache) Get(key string) (domain.Path, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (c *MemoryRouteCache) Put(key string, path domain.Path) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = path.Clone()
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order[0] = ""
		c.order = c.order[1:]
		delete(c.entries, oldest)
		if c.onEvict != nil {
			c.onEvict(oldest)
		}
	}

	// Compact once the dead prefix dominates the backing array.
	if cap(c.order) > 4*c.capacity {
		c.order = append(make([]string, 0, c.capacity), c.order...)
	}

	c.order = append(c.order, key)
	c.entries[key] = path.Clone()
}

func (c *MemoryRouteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
