package config

import (
	"strings"
)

// DefaultConfigPath is where the portal document is read from when CONFIG_PATH is unset.
const DefaultConfigPath = "/config/config.yaml"

// AppConfig is the process configuration. It composes domain-specific
// configuration from separate files:
//   - http.go: listener and path base
//   - redis.go: ticket cache and key ring connection
//   - data_protection.go: master key sources
//   - observability.go: logging, metrics and tracing
//
// Per-portal settings live in the portal document at ConfigPath, not here.
type AppConfig struct {
	// IsDev relaxes nothing security-relevant; it only switches the log
	// handler to text output and lowers the default level to debug.
	IsDev bool `env:"DEV" envDefault:"false"`

	// ConfigPath is the portal document.
	ConfigPath string `env:"CONFIG_PATH" envDefault:"/config/config.yaml"`

	// ConfigEncryptionKey decrypts ENC: scalars in the portal document.
	ConfigEncryptionKey string `env:"CONFIG_ENCRYPTION_KEY"`

	HTTP           HTTPConfig
	Redis          RedisConfig `envPrefix:"REDIS_"`
	DataProtection DataProtectionConfig
	Observability  ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.ConfigPath = strings.TrimSpace(c.ConfigPath)
	if c.ConfigPath == "" {
		c.ConfigPath = DefaultConfigPath
	}
	c.HTTP.Sanitize()
	c.Redis.Sanitize()
	c.DataProtection.Sanitize()
	c.Observability.Sanitize(c.IsDev)
}
