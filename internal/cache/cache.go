// Package cache provides a small in-memory LRU cache with entry
// expiry. It backs the pending quick-add store; nothing in here is
// persisted.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Cache is a fixed-capacity LRU with a uniform TTL. All methods are
// safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[K]*list.Element
	now      func() time.Time
}

func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[K]*list.Element),
		now:      time.Now,
	}
}

// Set stores a value, resetting its TTL, and evicts the least recently
// used entry when over capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expires})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
}

// Get returns the value if present and not expired. An expired entry is
// removed on the spot and reads as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeElement(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CleanExpired drops every expired entry and returns how many were
// removed. Meant to run periodically so abandoned entries do not sit
// around until capacity pushes them out.
func (c *Cache[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[K, V]).expiresAt) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
