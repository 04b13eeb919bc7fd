package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/config"
	oidcadapter "github.com/oformaniuk/fwda/internal/adapters/oidc"
	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	"github.com/oformaniuk/fwda/internal/observability/metrics"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/ports"
	"github.com/oformaniuk/fwda/internal/secrets"
	"github.com/oformaniuk/fwda/internal/service"
)

// Gateway holds the services built at startup. Everything here is immutable
// for the life of the process.
type Gateway struct {
	Registry *portal.Registry
	Schemes  *service.SchemeSet
	Auth     *service.AuthService
	// Metrics is nil when METRICS_ENABLED is false.
	Metrics *metrics.Prometheus
}

// GatewayDeps holds optional collaborators for BuildGateway.
type GatewayDeps struct {
	Logger *slog.Logger
	// Providers overrides the OIDC provider factory. Tests use it to avoid
	// network discovery.
	Providers service.ProviderFactory
}

// GatewayOptions groups inputs for BuildGateway.
type GatewayOptions struct {
	Config *config.AppConfig     // Required
	Redis  redis.UniversalClient // Optional
	Deps   GatewayDeps
}

// BuildGateway loads the portal document, resolves the master key and wires
// the ticket store, schemes and auth service.
func BuildGateway(ctx context.Context, opts GatewayOptions) (*Gateway, error) {
	if opts.Config == nil {
		return nil, errors.New("gateway config is required")
	}
	cfg := opts.Config
	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	codec := secrets.NewCodec(cfg.ConfigEncryptionKey)
	registry, err := portal.Load(cfg.ConfigPath, codec)
	if err != nil {
		return nil, fmt.Errorf("load portals: %w", err)
	}
	logger.InfoContext(ctx, "portal document loaded",
		"path", cfg.ConfigPath,
		"portals", registry.Names(),
		"encrypted_secrets", codec.Enabled(),
	)

	master, err := ResolveMasterKey(ctx, ProtectionOptions{
		Config: cfg.DataProtection,
		Redis:  opts.Redis,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	gw := &Gateway{Registry: registry}
	var recorder metrics.Recorder
	if cfg.Observability.MetricsEnabled {
		gw.Metrics = metrics.NewPrometheus()
		recorder = gw.Metrics
	}

	protector, err := cryptoutil.ForPurpose(master, cryptoutil.PurposeTicketStore)
	if err != nil {
		return nil, fmt.Errorf("ticket protector: %w", err)
	}
	tickets := service.NewTicketStore(service.TicketStoreOptions{
		Cache:     NewTicketCache(opts.Redis, cfg.Redis.InstanceName, logger),
		Protector: protector,
		Config: service.TicketStoreConfig{
			Timeout: registry.SessionTimeout(),
			Logger:  logger,
			Metrics: recorder,
		},
	})

	cookies, err := NewCookieCodec(master)
	if err != nil {
		return nil, fmt.Errorf("cookie codec: %w", err)
	}

	providers := opts.Deps.Providers
	if providers == nil {
		providers = OIDCProviderFactory(logger)
	}
	gw.Schemes = service.NewSchemeSet(service.SchemeSetOptions{
		Registry: registry,
		Tickets:  tickets,
		Config: service.SchemeSetConfig{
			Cookies:   cookies,
			Providers: providers,
			BasePath:  cfg.HTTP.BasePath,
			Logger:    logger,
		},
	})
	logger.InfoContext(ctx, "authentication schemes registered",
		"schemes", gw.Schemes.Names(),
		"skipped", len(gw.Schemes.Skipped()),
	)

	gw.Auth = service.NewAuthService(service.AuthServiceOptions{
		Registry: registry,
		Schemes:  gw.Schemes,
		Config:   service.AuthServiceConfig{Metrics: recorder, Logger: logger},
	})
	return gw, nil
}

// OIDCProviderFactory builds go-oidc backed providers. Discovery is lazy, so
// an unreachable issuer does not fail startup.
func OIDCProviderFactory(logger *slog.Logger) service.ProviderFactory {
	return func(p portal.Config) (ports.AuthProvider, error) {
		prov, err := oidcadapter.NewProvider(oidcadapter.ProviderConfig{
			Issuer:       p.OIDC.Issuer,
			ClientID:     p.OIDC.ClientID,
			ClientSecret: p.OIDC.ClientSecret.Reveal(),
			Scopes:       p.OIDC.Scopes,
			Logger:       logger.With("portal", p.Name),
		})
		if err != nil {
			return nil, err
		}
		return prov, nil
	}
}
