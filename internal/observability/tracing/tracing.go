package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultServiceName is reported as service.name on every span.
const DefaultServiceName = "fwda"

// Config selects the OTLP/HTTP collector. An empty Endpoint disables tracing.
type Config struct {
	Endpoint    string
	ServiceName string
}

// Provider owns the tracer provider installed by Init. A nil Provider is valid
// and leaves handlers uninstrumented.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init installs a global tracer provider exporting to cfg.Endpoint.
// It returns nil, nil when no endpoint is configured.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, nil
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", name)))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p != nil && p.tp != nil }

// Wrap instruments next with otelhttp when tracing is enabled.
func (p *Provider) Wrap(next http.Handler, operation string) http.Handler {
	if !p.Enabled() {
		return next
	}
	return otelhttp.NewHandler(next, operation, otelhttp.WithTracerProvider(p.tp))
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
