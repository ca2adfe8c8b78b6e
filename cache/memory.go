package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// memoryEntry is one cached value. A zero expiration marks a permanent
// entry: it never expires and is exempt from capacity eviction.
type memoryEntry struct {
	key        string
	value      []byte
	expiration time.Time
}

// memoryCache is a thread-safe LRU with per-entry TTL. It backs the
// store when Redis is absent and shields hot keys from Redis latency
// the rest of the time.
type memoryCache struct {
	capacity int
	mu       sync.RWMutex
	entries  map[string]*list.Element
	order    *list.List

	stop     chan struct{}
	stopOnce sync.Once
}

func newMemoryCache(capacity int, cleanupEvery time.Duration) *memoryCache {
	c := &memoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		stop:     make(chan struct{}),
	}
	go c.janitor(cleanupEvery)
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, found := c.entries[key]
	if !found {
		return nil, false
	}

	entry := element.Value.(*memoryEntry)
	if !entry.expiration.IsZero() && time.Now().After(entry.expiration) {
		c.removeElement(element)
		return nil, false
	}

	c.order.MoveToBack(element)
	return entry.value, true
}

func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.setWithExpiration(key, value, time.Now().Add(ttl))
}

func (c *memoryCache) SetPermanent(key string, value []byte) {
	c.setWithExpiration(key, value, time.Time{})
}

func (c *memoryCache) setWithExpiration(key string, value []byte, expiration time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, found := c.entries[key]; found {
		c.order.MoveToBack(element)
		entry := element.Value.(*memoryEntry)
		entry.value = value
		entry.expiration = expiration
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldestTransient()
	}

	element := c.order.PushBack(&memoryEntry{key: key, value: value, expiration: expiration})
	c.entries[key] = element
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, found := c.entries[key]; found {
		c.removeElement(element)
	}
}

// DeletePrefix removes every entry whose key starts with prefix and
// returns how many were removed.
func (c *memoryCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	var next *list.Element
	for element := c.order.Front(); element != nil; element = next {
		next = element.Next()
		entry := element.Value.(*memoryEntry)
		if strings.HasPrefix(entry.key, prefix) {
			c.removeElement(element)
			removed++
		}
	}
	return removed
}

func (c *memoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// CleanupExpired removes every expired entry and returns the count.
func (c *memoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for element := c.order.Front(); element != nil; element = next {
		next = element.Next()
		entry := element.Value.(*memoryEntry)
		if !entry.expiration.IsZero() && now.After(entry.expiration) {
			c.removeElement(element)
			removed++
		}
	}
	return removed
}

// evictOldestTransient drops the least-recently-used entry that has an
// expiration. Permanent entries are never capacity-evicted, so a cache
// holding only permanent data grows past capacity instead of losing
// entries that can never be refetched. Must be called with the write
// lock held.
func (c *memoryCache) evictOldestTransient() {
	for element := c.order.Front(); element != nil; element = element.Next() {
		if !element.Value.(*memoryEntry).expiration.IsZero() {
			c.removeElement(element)
			return
		}
	}
}

// removeElement must be called with the write lock held.
func (c *memoryCache) removeElement(element *list.Element) {
	c.order.Remove(element)
	entry := element.Value.(*memoryEntry)
	delete(c.entries, entry.key)
}

func (c *memoryCache) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
