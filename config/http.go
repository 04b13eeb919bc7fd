package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddress = "0.0.0.0"
	defaultListenPort    = 5005
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	ListenAddress string `env:"LISTEN_ADDRESS" envDefault:"0.0.0.0"`
	ListenPort    int    `env:"LISTEN_PORT"    envDefault:"5005"`

	// BasePath is the external path prefix the gateway is mounted under,
	// e.g. "/auth-gw". Requests are served with and without it.
	BasePath string `env:"HTTP_BASE_PATH" envDefault:""`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.ListenAddress = strings.TrimSpace(h.ListenAddress)
	if h.ListenAddress == "" {
		h.ListenAddress = defaultListenAddress
	}
	if h.ListenPort <= 0 || h.ListenPort > 65535 {
		h.ListenPort = defaultListenPort
	}
	h.BasePath = normalizeBasePath(h.BasePath)
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// Addr is the host:port the server listens on.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.ListenAddress, strconv.Itoa(h.ListenPort))
}

// normalizeBasePath returns "" or a path with one leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
