// Package cache stores processing results under UUID keys with per-entry
// TTLs. Two backends exist: an in-memory map and a SQLite table shared
// between processes.
package cache

import (
	"context"
	"time"

	"whatsthedamage/internal/core"
)

// DefaultTTL applies when a caller stores a result without an explicit TTL.
const DefaultTTL = 600 * time.Second

// ResultCache stores cached processing results.
type ResultCache interface {
	// Set stores a result under key with the given TTL. A non-positive
	// ttl falls back to DefaultTTL.
	Set(ctx context.Context, key string, result core.CachedResult, ttl time.Duration) error

	// Get retrieves a result. The second return is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (core.CachedResult, bool, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches. Calling it
// twice is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. Without a prior StartCleanup it
// returns immediately.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}
