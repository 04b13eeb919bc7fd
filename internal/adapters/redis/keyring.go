package redis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	"github.com/oformaniuk/fwda/internal/ports"
)

// DefaultKeyRingKey holds the shared master key.
const DefaultKeyRingKey = "DataProtection-Keys:fwda"

// KeyRing shares one master key across every instance through Redis. The
// first instance to start wins the SETNX race; the rest read its key back.
type KeyRing struct {
	client   redis.UniversalClient
	key      string
	generate func() ([]byte, error)
}

var _ ports.KeySource = (*KeyRing)(nil)

// NewKeyRing creates a KeyRing stored under DefaultKeyRingKey.
func NewKeyRing(client redis.UniversalClient) *KeyRing {
	return &KeyRing{
		client:   client,
		key:      DefaultKeyRingKey,
		generate: cryptoutil.NewMasterKey,
	}
}

func (k *KeyRing) MasterKey(ctx context.Context) ([]byte, error) {
	fresh, err := k.generate()
	if err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}

	created, err := k.client.SetNX(ctx, k.key, base64.StdEncoding.EncodeToString(fresh), 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", k.key, err)
	}
	if created {
		return fresh, nil
	}

	stored, err := k.client.Get(ctx, k.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("master key %s vanished after setnx", k.key)
		}
		return nil, fmt.Errorf("redis get %s: %w", k.key, err)
	}
	key, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(key) != cryptoutil.KeySize {
		return nil, fmt.Errorf("master key %s is malformed", k.key)
	}
	return key, nil
}
