package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/config"
)

const (
	defaultRedisPort = "6379"
	redisPingTimeout = 5 * time.Second
)

// RedisOptions contains configuration for the Redis connection.
type RedisOptions struct {
	Config config.RedisConfig
	Logger *slog.Logger
}

// endpoint is a parsed REDIS_CONNECTION_STRING. Both redis:// URLs and the
// comma-separated "host:port,password=...,ssl=true" form are accepted.
type endpoint struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	TLS         bool
	DialTimeout time.Duration
	IOTimeout   time.Duration
	MasterName  string
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, opts RedisOptions) (redis.UniversalClient, error) {
	cfg := opts.Config

	var (
		client   redis.UniversalClient
		addrDesc string
		err      error
	)

	switch {
	case cfg.UseCluster:
		client, addrDesc, err = newClusterClient(cfg)
	case cfg.UseSentinel:
		client, addrDesc, err = newSentinelClient(cfg)
	default:
		client, addrDesc, err = newDirectClient(cfg)
	}
	if err != nil {
		return nil, err
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if opts.Logger != nil {
		opts.Logger.InfoContext(ctx, "redis connected", "addr", addrDesc)
	}

	return client, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	ep, err := parseEndpoint(cfg.ConnectionString, cfg.Password)
	if err != nil {
		return nil, "", err
	}
	addrs := normalizeAddrs(cfg.ClusterNodes)
	if len(addrs) == 0 {
		addrs = ep.Addrs
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}

	clusterOpts := &redis.ClusterOptions{
		Addrs:        addrs,
		Username:     ep.Username,
		Password:     ep.Password,
		DialTimeout:  ep.DialTimeout,
		ReadTimeout:  ep.IOTimeout,
		WriteTimeout: ep.IOTimeout,
	}
	if ep.TLS {
		clusterOpts.TLSConfig = tlsConfig(addrs[0])
	}

	return redis.NewClusterClient(clusterOpts), "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if len(cfg.SentinelNodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}
	ep, err := parseEndpoint(cfg.ConnectionString, cfg.Password)
	if err != nil {
		return nil, "", err
	}
	master := cfg.SentinelMasterName
	if ep.MasterName != "" {
		master = ep.MasterName
	}

	opts := &redis.FailoverOptions{
		MasterName:       master,
		SentinelAddrs:    withDefaultPort(cfg.SentinelNodes, "26379"),
		Username:         ep.Username,
		Password:         ep.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               ep.DB,
		DialTimeout:      ep.DialTimeout,
		ReadTimeout:      ep.IOTimeout,
		WriteTimeout:     ep.IOTimeout,
	}
	if ep.TLS {
		opts.TLSConfig = tlsConfig(opts.SentinelAddrs[0])
	}
	return redis.NewFailoverClient(opts), "sentinel:" + master, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	ep, err := parseEndpoint(cfg.ConnectionString, cfg.Password)
	if err != nil {
		return nil, "", err
	}
	if len(ep.Addrs) == 0 {
		return nil, "", errors.New("redis direct configuration requires a connection string")
	}

	opts := &redis.Options{
		Addr:         ep.Addrs[0],
		Username:     ep.Username,
		Password:     ep.Password,
		DB:           ep.DB,
		DialTimeout:  ep.DialTimeout,
		ReadTimeout:  ep.IOTimeout,
		WriteTimeout: ep.IOTimeout,
	}
	if ep.TLS {
		opts.TLSConfig = tlsConfig(opts.Addr)
	}
	return redis.NewClient(opts), opts.Addr, nil
}

// parseEndpoint decodes a connection string. fallbackPassword applies when
// the string carries none.
func parseEndpoint(raw, fallbackPassword string) (endpoint, error) {
	raw = strings.TrimSpace(raw)
	ep := endpoint{Password: fallbackPassword}
	if raw == "" {
		return ep, nil
	}

	if isRedisURL(raw) {
		opt, err := redis.ParseURL(raw)
		if err != nil {
			return endpoint{}, fmt.Errorf("parse redis url: %w", err)
		}
		ep.Addrs = []string{opt.Addr}
		ep.Username = opt.Username
		if opt.Password != "" {
			ep.Password = opt.Password
		}
		ep.DB = opt.DB
		ep.TLS = opt.TLSConfig != nil
		return ep, nil
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, isOption := strings.Cut(part, "=")
		if !isOption {
			ep.Addrs = append(ep.Addrs, part)
			continue
		}
		if err := ep.apply(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
			return endpoint{}, err
		}
	}
	ep.Addrs = withDefaultPort(ep.Addrs, defaultRedisPort)
	return ep, nil
}

func (ep *endpoint) apply(key, value string) error {
	switch key {
	case "password":
		ep.Password = value
	case "user":
		ep.Username = value
	case "ssl":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redis connection string: invalid ssl value %q", value)
		}
		ep.TLS = on
	case "defaultdatabase":
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			return fmt.Errorf("redis connection string: invalid defaultDatabase %q", value)
		}
		ep.DB = db
	case "connecttimeout":
		d, err := millis(value)
		if err != nil {
			return fmt.Errorf("redis connection string: invalid connectTimeout %q", value)
		}
		ep.DialTimeout = d
	case "synctimeout", "asynctimeout":
		d, err := millis(value)
		if err != nil {
			return fmt.Errorf("redis connection string: invalid %s %q", key, value)
		}
		ep.IOTimeout = d
	case "servicename":
		ep.MasterName = value
	}
	// Options such as abortConnect or allowAdmin have no go-redis equivalent.
	return nil
}

func millis(value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return time.Duration(n) * time.Millisecond, nil
}

func withDefaultPort(addrs []string, port string) []string {
	out := normalizeAddrs(addrs)
	for i, addr := range out {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			out[i] = net.JoinHostPort(addr, port)
		}
	}
	return out
}

func tlsConfig(addr string) *tls.Config {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
