package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the injected read-through cache used for availability rules.
// Entries expire on their own; writers must call Delete on mutation.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	Flush()
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemory returns an in-process cache with the given TTL. Eviction runs
// at twice the TTL.
func NewMemory(ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &memoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *memoryCache) Get(key string) (interface{}, bool) {
	return m.c.Get(key)
}

func (m *memoryCache) Set(key string, value interface{}) {
	m.c.SetDefault(key, value)
}

func (m *memoryCache) Delete(key string) {
	m.c.Delete(key)
}

func (m *memoryCache) Flush() {
	m.c.Flush()
}
