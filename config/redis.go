package config

import "strings"

// DefaultRedisInstanceName prefixes ticket keys when REDIS_INSTANCE_NAME is unset.
const DefaultRedisInstanceName = "FwdaForwardAuth:"

// RedisConfig contains Redis configuration. Redis is optional: without it the
// gateway keeps tickets in process memory and the master key on disk, which
// only suits a single instance.
type RedisConfig struct {
	// ConnectionString is either a redis:// or rediss:// URL, or a
	// comma-separated "host:port,password=...,ssl=true" list.
	ConnectionString string `env:"CONNECTION_STRING"`
	InstanceName     string `env:"INSTANCE_NAME"        envDefault:"FwdaForwardAuth:"`
	Password         string `env:"PASSWORD"`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"`

	UseCluster   bool     `env:"USE_CLUSTER"   envDefault:"false"`
	ClusterNodes []string `env:"CLUSTER_NODES"`
}

// Sanitize trims values and drops blank node entries.
func (r *RedisConfig) Sanitize() {
	r.ConnectionString = strings.TrimSpace(r.ConnectionString)
	if r.InstanceName == "" {
		r.InstanceName = DefaultRedisInstanceName
	}
	r.SentinelNodes = compact(r.SentinelNodes)
	r.ClusterNodes = compact(r.ClusterNodes)
	if r.UseSentinel && len(r.SentinelNodes) == 0 {
		r.UseSentinel = false
	}
}

// Enabled reports whether any Redis topology is configured.
func (r RedisConfig) Enabled() bool {
	switch {
	case r.UseCluster:
		return len(r.ClusterNodes) > 0 || r.ConnectionString != ""
	case r.UseSentinel:
		return len(r.SentinelNodes) > 0
	default:
		return r.ConnectionString != ""
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
