package search

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// cacheEntry is one cached query result set.
type cacheEntry struct {
	Query     string      `json:"query"`
	Results   []WebResult `json:"results"`
	Timestamp time.Time   `json:"timestamp"`
}

// Cache is a file-backed query cache with a TTL. The cache file survives
// restarts; only the search engine instance itself is transient.
type Cache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// CacheStats summarizes the cache for status reporting.
type CacheStats struct {
	TotalEntries int    `json:"total_entries"`
	LastHour     int    `json:"last_hour"`
	LastDay      int    `json:"last_day"`
	Older        int    `json:"older"`
	Path         string `json:"path,omitempty"`
}

// NewCache loads the cache file at path (if present) and prunes entries past
// ttl. A corrupt or missing file yields an empty cache, never an error.
func NewCache(path string, ttl time.Duration) *Cache {
	c := &Cache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	if b, err := os.ReadFile(path); err == nil {
		// Tolerate a corrupt file: start fresh rather than failing startup.
		_ = json.Unmarshal(b, &c.entries)
	}
	c.Prune()
	return c
}

// Get returns the cached results for key and their age, if still fresh.
func (c *Cache) Get(key string) ([]WebResult, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	age := c.now().Sub(e.Timestamp)
	if age >= c.ttl {
		delete(c.entries, key)
		return nil, 0, false
	}
	return e.Results, age, true
}

// Put stores results under key and persists the cache file.
func (c *Cache) Put(key, query string, results []WebResult) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{Query: query, Results: results, Timestamp: c.now()}
	c.saveLocked()
	c.mu.Unlock()
}

// Prune removes expired entries and persists when anything was dropped.
// Returns the number of removed entries.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for key, e := range c.entries {
		if e.Timestamp.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.saveLocked()
	}
	return removed
}

// Clear drops all entries and removes the cache file.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	if c.path != "" {
		_ = os.Remove(c.path)
	}
}

// Stats reports entry counts bucketed by age.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := CacheStats{TotalEntries: len(c.entries), Path: c.path}
	now := c.now()
	for _, e := range c.entries {
		switch age := now.Sub(e.Timestamp); {
		case age < time.Hour:
			st.LastHour++
		case age < 24*time.Hour:
			st.LastDay++
		default:
			st.Older++
		}
	}
	return st
}

// saveLocked persists the cache file. Callers must hold c.mu. Write failures
// are ignored: the cache is an optimization, not a store of record.
func (c *Cache) saveLocked() {
	if c.path == "" {
		return
	}
	b, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path, b, 0o644)
}
