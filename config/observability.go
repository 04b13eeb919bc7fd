package config

import (
	"log/slog"
	"strings"
)

const defaultServiceName = "fwda"

// ObservabilityConfig groups logging, metrics and tracing settings.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error. Empty means info, or
	// debug in dev mode.
	LogLevel string `env:"LOG_LEVEL"`

	// MetricsEnabled exposes Prometheus counters on /metrics.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// OTLPEndpoint enables request tracing when set, e.g. http://otel-collector:4318.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"fwda"`
}

// Sanitize normalises the log level and tracing fields.
func (c *ObservabilityConfig) Sanitize(isDev bool) {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "warning":
		c.LogLevel = "warn"
	default:
		c.LogLevel = "info"
		if isDev {
			c.LogLevel = "debug"
		}
	}
	c.OTLPEndpoint = strings.TrimSpace(c.OTLPEndpoint)
	if c.ServiceName = strings.TrimSpace(c.ServiceName); c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
}

// SlogLevel maps LogLevel onto slog.
func (c ObservabilityConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TracingEnabled reports whether an OTLP endpoint is configured.
func (c ObservabilityConfig) TracingEnabled() bool {
	return c.OTLPEndpoint != ""
}
