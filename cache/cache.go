// Package cache keeps recently assembled property records in memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/cadastre/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    *models.PropertyRecord
	createdAt time.Time
}

// Cache is an in-memory record cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache holding at most maxEntries records. A background
// goroutine evicts entries older than ttl every five minutes.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		now:        time.Now,
	}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key identifies one property's record for one assessment year.
func Key(geocode string, year int) string {
	h := sha256.New()
	h.Write([]byte(geocode))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(year)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached record younger than maxAge. A maxAge <= 0 skips the
// lookup.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.PropertyRecord, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}
	return e.record, true
}

// Set stores a record. At capacity an arbitrary entry is evicted first.
func (c *Cache) Set(key string, rec *models.PropertyRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{record: rec, createdAt: c.now()}
}

// Len reports the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.evictOlderThan(c.now().Add(-c.ttl))
	}
}

func (c *Cache) evictOlderThan(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
