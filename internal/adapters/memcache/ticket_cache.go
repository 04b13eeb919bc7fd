// Package memcache is the single-instance ticket cache used when no Redis is
// configured. Sessions do not survive a restart and are not shared.
package memcache

import (
	"bytes"
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oformaniuk/fwda/internal/ports"
)

const cleanupInterval = 10 * time.Minute

// TicketCache is an in-process ports.TicketCache.
type TicketCache struct {
	items *gocache.Cache
}

var _ ports.TicketCache = (*TicketCache)(nil)

// NewTicketCache creates an empty in-memory cache.
func NewTicketCache() *TicketCache {
	return &TicketCache{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *TicketCache) Get(_ context.Context, key string, sliding time.Duration) ([]byte, error) {
	v, found := c.items.Get(key)
	if !found {
		return nil, ports.ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		c.items.Delete(key)
		return nil, ports.ErrCacheMiss
	}
	if sliding > 0 {
		// Re-set to push the expiry out; a concurrent Set wins either way.
		c.items.Set(key, data, sliding)
	}
	return bytes.Clone(data), nil
}

func (c *TicketCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.items.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (c *TicketCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len reports the number of unexpired and not yet collected entries.
func (c *TicketCache) Len() int {
	return c.items.ItemCount()
}
