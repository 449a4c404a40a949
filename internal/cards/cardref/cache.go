package cardref

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Cache stores resolved records without expiry. Puts overwrite.
type Cache interface {
	Get(ctx context.Context, key string) (*Record, bool)
	Put(ctx context.Context, key string, rec *Record)
}

// MemoryCache is an unbounded in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]*Record)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[key]
	return rec, ok
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[key] = rec
}

// Len returns the number of cached keys.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Store persists encoded records across restarts.
type Store interface {
	GetCard(ctx context.Context, key string) ([]byte, bool, error)
	PutCard(ctx context.Context, key string, data []byte) error
}

// PersistentCache layers a MemoryCache over a Store. Store failures are
// logged and otherwise ignored; the memory layer keeps working.
type PersistentCache struct {
	memory *MemoryCache
	store  Store
}

// NewPersistentCache creates a read-through, write-through cache.
func NewPersistentCache(store Store) *PersistentCache {
	return &PersistentCache{memory: NewMemoryCache(), store: store}
}

// Get implements Cache.
func (c *PersistentCache) Get(ctx context.Context, key string) (*Record, bool) {
	if rec, ok := c.memory.Get(ctx, key); ok {
		return rec, true
	}

	data, ok, err := c.store.GetCard(ctx, key)
	if err != nil {
		log.Printf("[CardCache] Failed to read %q: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("[CardCache] Discarding corrupt entry %q: %v", key, err)
		return nil, false
	}

	c.memory.Put(ctx, key, &rec)
	return &rec, true
}

// Put implements Cache.
func (c *PersistentCache) Put(ctx context.Context, key string, rec *Record) {
	c.memory.Put(ctx, key, rec)

	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[CardCache] Failed to encode %q: %v", key, err)
		return
	}
	if err := c.store.PutCard(ctx, key, data); err != nil {
		log.Printf("[CardCache] Failed to persist %q: %v", key, err)
	}
}
