// Package imagecache provides an in-memory content cache keyed by blob URL.
// Listing screens consult it before touching a blob store. Entries are plain
// byte slices; a duplicate concurrent fetch racing to populate the same key
// is benign since the content behind a URL is immutable.
package imagecache

import (
	"strings"
	"sync"
)

// Cache maps a URL string to decoded image bytes.
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the cached bytes for a URL, if present.
func (c *Cache) Get(url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[url]
	return data, ok
}

// Set stores bytes for a URL. The last writer for a key wins.
func (c *Cache) Set(url string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = data
}

// GetOrSet returns the cached bytes for a URL, storing data if the key is
// absent. Returns the winning value and whether it came from the cache.
func (c *Cache) GetOrSet(url string, data []byte) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[url]; ok {
		return existing, true
	}
	c.entries[url] = data
	return data, false
}

// Evict removes a single URL from the cache.
func (c *Cache) Evict(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// EvictPrefix removes every entry whose URL starts with prefix.
// The local blob watcher uses this when a file under the blob directory
// changes out from under the cache.
func (c *Cache) EvictPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for url := range c.entries {
		if strings.HasPrefix(url, prefix) {
			delete(c.entries, url)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
