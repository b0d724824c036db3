package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
)

// RenderCache keeps recently rendered markdown, evicting the least
// recently used entry when full.
type RenderCache struct {
	mu      sync.Mutex
	cache   map[string]string
	maxSize int
	lru     []string
}

// NewRenderCache creates a cache holding at most maxSize entries
func NewRenderCache(maxSize int) *RenderCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &RenderCache{
		cache:   make(map[string]string),
		maxSize: maxSize,
	}
}

// Key hashes the rendering inputs
func (c *RenderCache) Key(params ...any) string {
	h := sha256.New()
	for _, param := range params {
		fmt.Fprintf(h, "%v\x00", param)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached rendering
func (c *RenderCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.cache[key]
	if ok {
		c.touch(key)
	}
	return content, ok
}

// Set stores a rendering
func (c *RenderCache) Set(key, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[key]; !ok && len(c.cache) >= c.maxSize && len(c.lru) > 0 {
		delete(c.cache, c.lru[0])
		c.lru = c.lru[1:]
	}
	c.cache[key] = content
	c.touch(key)
}

// Len is the number of cached entries
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear removes all entries
func (c *RenderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cache)
	c.lru = c.lru[:0]
}

func (c *RenderCache) touch(key string) {
	if i := slices.Index(c.lru, key); i >= 0 {
		c.lru = slices.Delete(c.lru, i, i+1)
	}
	c.lru = append(c.lru, key)
}
