// Package cache memoizes API responses for resources that have reached a
// terminal status. Finished pipelines and jobs are immutable history on
// GitLab, so terminal entries never expire; non-terminal payloads are never
// stored at all. That rule replaces any TTL scheme.
package cache

import (
	"sync"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// Kind identifies the resource type a cache entry holds.
type Kind string

const (
	KindPipeline Kind = "pipeline"
	KindJob      Kind = "job"
	KindLog      Kind = "log"
)

type key struct {
	kind Kind
	id   int
}

type entry struct {
	mu      sync.Mutex
	payload any
}

// Cache is an in-process response cache keyed by (kind, id). The outer map
// lock is held only for lookup and insert; payload access is serialized per
// entry, so unrelated ids never contend.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]*entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[key]*entry)}
}

// Get returns the cached payload for (kind, id), or ok=false on a miss.
func (c *Cache) Get(kind Kind, id int) (any, bool) {
	c.mu.RLock()
	e := c.entries[key{kind, id}]
	c.mu.RUnlock()
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.payload == nil {
		return nil, false
	}
	return e.payload, true
}

// Put stores payload under (kind, id) if status is terminal. Non-terminal
// payloads are silently skipped; concurrent terminal writes to the same id
// resolve to the last one.
func (c *Cache) Put(kind Kind, id int, payload any, status domain.Status) bool {
	if !status.Terminal() {
		return false
	}
	k := key{kind, id}
	c.mu.Lock()
	e := c.entries[k]
	if e == nil {
		e = &entry{}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	e.payload = payload
	e.mu.Unlock()
	return true
}

// Invalidate removes the entry for (kind, id), if any.
func (c *Cache) Invalidate(kind Kind, id int) {
	c.mu.Lock()
	delete(c.entries, key{kind, id})
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[key]*entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
