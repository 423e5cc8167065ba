// Package cache provides a small in-memory TTL cache used by the store
// layer to absorb repeated lookups.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds cache settings.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxItems        int
	OnEviction      func(key string, value any)
}

type item struct {
	key       string
	value     any
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a bounded TTL cache with LRU eviction. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	config Config
	items  map[string]*item
	order  *list.List
	stop   chan struct{}
	once   sync.Once
}

// New creates a cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	c := &Cache{
		config: config,
		items:  make(map[string]*item),
		order:  list.New(),
		stop:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Set stores the value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores the value with an explicit TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[key]; ok {
		existing.value = value
		existing.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(existing.elem)
		return
	}

	it := &item{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	it.elem = c.order.PushFront(it)
	c.items[key] = it

	for len(c.items) > c.config.MaxItems {
		c.evictOldest()
	}
}

// Get returns the cached value, or false when absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		c.removeLocked(it)
		return nil, false
	}
	c.order.MoveToFront(it.elem)
	return it.value, true
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok {
		c.removeLocked(it)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		c.removeLocked(it)
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.removeLocked(elem.Value.(*item))
}

func (c *Cache) removeLocked(it *item) {
	c.order.Remove(it.elem)
	delete(c.items, it.key)
	if c.config.OnEviction != nil {
		c.config.OnEviction(it.key, it.value)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if now.After(it.expiresAt) {
			c.removeLocked(it)
		}
	}
}
