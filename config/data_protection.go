package config

import "strings"

// DefaultKeysPath holds the master key file when neither an explicit key nor
// Redis is configured.
const DefaultKeysPath = "/keys/dataprotection"

// DataProtectionConfig selects where the shared master key comes from.
// Precedence: Key, then the Redis key ring, then a file under KeysPath.
type DataProtectionConfig struct {
	// Key is a base64-encoded 32-byte key or a passphrase.
	Key      string `env:"DATA_PROTECTION_KEY"`
	KeysPath string `env:"DP_KEYS_PATH"        envDefault:"/keys/dataprotection"`
}

// Sanitize trims values and restores the default path.
func (d *DataProtectionConfig) Sanitize() {
	d.Key = strings.TrimSpace(d.Key)
	if d.KeysPath = strings.TrimSpace(d.KeysPath); d.KeysPath == "" {
		d.KeysPath = DefaultKeysPath
	}
}
