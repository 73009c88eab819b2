package cache

import (
	"context"
	"sync"
	"time"

	"whatsthedamage/internal/core"
)

type memoryItem struct {
	result    core.CachedResult
	expiresAt time.Time
}

// MemoryCache is a mutex-guarded in-memory ResultCache with per-entry TTL.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
	}
}

// Set stores a value in the cache
func (c *MemoryCache) Set(_ context.Context, key string, result core.CachedResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryItem{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Get retrieves a value from the cache, dropping it when expired
func (c *MemoryCache) Get(_ context.Context, key string) (core.CachedResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return core.CachedResult{}, false, nil
	}
	if time.Now().After(item.expiresAt) {
		delete(c.items, key)
		return core.CachedResult{}, false, nil
	}
	return item.result, true, nil
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Size returns the current number of items in the cache
func (c *MemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes expired entries and returns how many were dropped
func (c *MemoryCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	cleaned := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			cleaned++
		}
	}
	return cleaned
}
