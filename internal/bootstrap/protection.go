package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/config"
	"github.com/oformaniuk/fwda/internal/adapters/keyfile"
	"github.com/oformaniuk/fwda/internal/adapters/memcache"
	redisadapter "github.com/oformaniuk/fwda/internal/adapters/redis"
	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	"github.com/oformaniuk/fwda/internal/ports"
)

// Key source names reported in the startup log.
const (
	KeySourceExplicit = "explicit"
	KeySourceRedis    = "redis"
	KeySourceFile     = "file"
)

// staticKey is a KeySource for DATA_PROTECTION_KEY.
type staticKey []byte

func (k staticKey) MasterKey(context.Context) ([]byte, error) { return k, nil }

// ProtectionOptions groups inputs for master key resolution.
type ProtectionOptions struct {
	Config config.DataProtectionConfig
	Redis  redis.UniversalClient // Optional
	Logger *slog.Logger
}

// SelectKeySource picks where the master key lives: an explicit key first,
// then the Redis key ring, then a file on disk.
//
//nolint:ireturn // the three sources share only the port.
func SelectKeySource(opts ProtectionOptions) (ports.KeySource, string, error) {
	if opts.Config.Key != "" {
		key, err := cryptoutil.MasterKeyFromString(opts.Config.Key)
		if err != nil {
			return nil, "", fmt.Errorf("data protection key: %w", err)
		}
		return staticKey(key), KeySourceExplicit, nil
	}
	if opts.Redis != nil {
		return redisadapter.NewKeyRing(opts.Redis), KeySourceRedis, nil
	}
	return keyfile.New(opts.Config.KeysPath), KeySourceFile, nil
}

// ResolveMasterKey loads or creates the master key shared by every instance.
func ResolveMasterKey(ctx context.Context, opts ProtectionOptions) ([]byte, error) {
	src, name, err := SelectKeySource(opts)
	if err != nil {
		return nil, err
	}
	key, err := src.MasterKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load master key from %s: %w", name, err)
	}
	if opts.Logger != nil {
		opts.Logger.InfoContext(ctx, "data protection key loaded", "source", name)
	}
	return key, nil
}

// NewTicketCache returns the Redis cache when a client is available and the
// in-process cache otherwise.
//
//nolint:ireturn // cache choice is a runtime decision.
func NewTicketCache(client redis.UniversalClient, instanceName string, logger *slog.Logger) ports.TicketCache {
	if client != nil {
		return redisadapter.NewTicketCacheWithPrefix(client, instanceName)
	}
	if logger != nil {
		logger.Warn("redis not configured; sessions are kept in memory and are not shared between instances")
	}
	return memcache.NewTicketCache()
}

// NewCookieCodec builds the signed and encrypted cookie codec from purpose
// keys derived off master.
func NewCookieCodec(master []byte) (*securecookie.SecureCookie, error) {
	hashKey, err := cryptoutil.DeriveKey(master, cryptoutil.PurposeCookieHash, 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := cryptoutil.DeriveKey(master, cryptoutil.PurposeCookieBlock, cryptoutil.KeySize)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return codec, nil
}
