package ai

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// CachingEmbedder wraps an Embedder with an LRU cache keyed by input text.
// Repeated queries, common in multi-turn conversations, skip the provider
// round trip.
type CachingEmbedder struct {
	inner      Embedder
	capacity   int
	defaultTTL time.Duration

	mu    sync.Mutex
	cache map[string]*embedEntry
	order *list.List
}

type embedEntry struct {
	text      string
	vector    []float32
	expiresAt time.Time
	element   *list.Element
}

// NewCachingEmbedder wraps inner with a cache of the given capacity and TTL.
func NewCachingEmbedder(inner Embedder, capacity int, ttl time.Duration) *CachingEmbedder {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachingEmbedder{
		inner:      inner,
		capacity:   capacity,
		defaultTTL: ttl,
		cache:      make(map[string]*embedEntry),
		order:      list.New(),
	}
}

// Embed returns the cached vector for the text, or delegates to the inner
// embedder and caches the result. Errors are never cached.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.get(text); ok {
		return vector, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(text, vector)
	return vector, nil
}

// Len reports the number of cached vectors.
func (c *CachingEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *CachingEmbedder) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[text]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.order.Remove(e.element)
		delete(c.cache, text)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.vector, true
}

func (c *CachingEmbedder) set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[text]; ok {
		e.vector = vector
		e.expiresAt = time.Now().Add(c.defaultTTL)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*embedEntry)
		c.order.Remove(oldest)
		delete(c.cache, evicted.text)
	}

	e := &embedEntry{
		text:      text,
		vector:    vector,
		expiresAt: time.Now().Add(c.defaultTTL),
	}
	e.element = c.order.PushFront(e)
	c.cache[text] = e
}
