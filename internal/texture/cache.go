package texture

import (
	"image"
	"sync"
)

// Cache is a concurrency-safe decoded-image cache keyed by path, so a
// texture shared by several material groups decodes once.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img image.Image
	err error
}

// NewCache creates an empty texture cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]*cacheEntry)}
}

// Get loads and caches the image at path. Load errors are cached too.
func (c *Cache) Get(path string) (image.Image, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := Load(path)

	// Write lock with double-check
	c.mu.Lock()
	if entry, exists := c.items[path]; exists {
		c.mu.Unlock()
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	c.mu.Unlock()

	return img, err
}
