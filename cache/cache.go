// Package cache implements the result cache (C3): a bounded mapping from a
// fingerprint to a prior extraction result, with per-entry TTL and O(1) LRU
// eviction via a doubly-linked list plus hash table.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/use-agent/purify/models"
)

// entry is the value stored in the linked list.
type entry struct {
	key        string
	value      *models.ExtractionResult
	insertedAt time.Time
}

// Cache is a size- and time-bounded LRU cache. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ll      *list.List
	index   map[string]*list.Element
	maxSize int
	ttl     time.Duration
}

// New creates a Cache with the given capacity and TTL.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		ll:      list.New(),
		index:   make(map[string]*list.Element, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key if present and not expired. A
// successful Get promotes the entry to most-recently-used.
func (c *Cache) Get(key string) (*models.ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if time.Since(e.insertedAt) > c.ttl {
		c.removeElement(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

// Has reports whether key is present and unexpired. Like Get, a hit promotes
// the entry to most-recently-used.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set inserts or replaces the value for key as most-recently-used with a
// fresh timestamp, evicting the least-recently-used entry first if the
// cache is at capacity.
func (c *Cache) Set(key string, value *models.ExtractionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.ll.Remove(el)
		delete(c.index, key)
	}

	if c.ll.Len() >= c.maxSize {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	el := c.ll.PushFront(&entry{key: key, value: value, insertedAt: time.Now()})
	c.index[key] = el
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[string]*list.Element, c.maxSize)
}

// Size returns the number of live entries, including ones that have expired
// but have not yet been observed (and thus swept) by a Get/Has call.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeElement must be called with c.mu held.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.index, e.key)
}
