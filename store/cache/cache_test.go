package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set("a", 1)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.SetWithTTL("a", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheEvictsOldestOverCapacity(t *testing.T) {
	evicted := []string{}
	c := New(Config{
		DefaultTTL: time.Minute,
		MaxItems:   2,
		OnEviction: func(key string, _ any) { evicted = append(evicted, key) },
	})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a"}, evicted)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Zero(t, c.Len())
}
