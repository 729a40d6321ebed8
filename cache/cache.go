package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/livepeer/catalyst-api/log"
)

// defaultExpiration bounds how long an entry can survive in a job-scoped
// cache (the full-video fallback download, cached subtitles) if the owning
// job crashes or is abandoned before reaching a terminal state and clearing
// its own cache. Jobs that complete normally evict their entries long
// before this fires; this is only the backstop.
const defaultExpiration = 6 * time.Hour

// cleanupInterval matches the teacher's own logger cache sweep cadence
// (log/logger.go).
const cleanupInterval = 10 * time.Minute

// Cache is a generic, TTL-bounded key-value store backed by
// patrickmn/go-cache, the same library the teacher uses for its
// per-request logger cache (log/logger.go).
type Cache[T interface{}] struct {
	cache *gocache.Cache
}

func New[T interface{}]() *Cache[T] {
	return &Cache[T]{
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *Cache[T]) Remove(requestID, key string) {
	c.cache.Delete(key)
	log.Log(requestID, "removing cache entry", "key", key)
}

func (c *Cache[T]) Get(key string) T {
	var zero T
	v, ok := c.cache.Get(key)
	if !ok {
		return zero
	}
	value, ok := v.(T)
	if !ok {
		return zero
	}
	return value
}

func (c *Cache[T]) Store(key string, value T) {
	c.cache.SetDefault(key, value)
}
