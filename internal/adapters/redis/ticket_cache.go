package redis

// Package redis provides Redis-based adapters for fwda.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/internal/ports"
)

// DefaultInstanceName prefixes every ticket key when REDIS_INSTANCE_NAME is unset.
const DefaultInstanceName = "FwdaForwardAuth:"

// TicketCache is a Redis-backed ports.TicketCache. Reads use GETEX so every
// hit pushes the expiry out by the sliding window.
type TicketCache struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.TicketCache = (*TicketCache)(nil)

// NewTicketCache creates a Redis ticket cache.
func NewTicketCache(client redis.UniversalClient) *TicketCache {
	return NewTicketCacheWithPrefix(client, DefaultInstanceName)
}

// NewTicketCacheWithPrefix creates a Redis ticket cache with a custom key prefix.
func NewTicketCacheWithPrefix(client redis.UniversalClient, prefix string) *TicketCache {
	return &TicketCache{
		client: client,
		prefix: prefix,
	}
}

func (c *TicketCache) Get(ctx context.Context, key string, sliding time.Duration) ([]byte, error) {
	if key == "" {
		return nil, ports.ErrCacheMiss
	}

	var cmd *redis.StringCmd
	if sliding > 0 {
		cmd = c.client.GetEx(ctx, c.prefix+key, sliding)
	} else {
		cmd = c.client.Get(ctx, c.prefix+key)
	}

	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis getex: %w", err)
	}
	return data, nil
}

func (c *TicketCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *TicketCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
