package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oformaniuk/fwda/config"
	"github.com/oformaniuk/fwda/internal/observability/tracing"
)

const tracingFlushTimeout = 5 * time.Second

// AppOptions groups inputs for Run.
type AppOptions struct {
	Config  *config.AppConfig // Required
	Version string
	Logger  *slog.Logger
}

// Run connects infrastructure, builds the gateway and serves HTTP until ctx
// is canceled.
func Run(ctx context.Context, opts AppOptions) (err error) {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("app config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "starting fwda",
		"version", opts.Version,
		"addr", cfg.HTTP.Addr(),
		"base_path", cfg.HTTP.BasePath,
		"redis", cfg.Redis.Enabled(),
		"metrics", cfg.Observability.MetricsEnabled,
		"tracing", cfg.Observability.TracingEnabled(),
	)

	var client redis.UniversalClient
	if cfg.Redis.Enabled() {
		client, err = ConnectRedis(ctx, RedisOptions{Config: cfg.Redis, Logger: logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	tp, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tracingFlushTimeout)
		defer cancel()
		if terr := tp.Shutdown(flushCtx); terr != nil {
			logger.ErrorContext(ctx, "flush traces failed", "error", terr)
		}
	}()

	gw, err := BuildGateway(ctx, GatewayOptions{
		Config: cfg,
		Redis:  client,
		Deps:   GatewayDeps{Logger: logger},
	})
	if err != nil {
		return err
	}

	handler := NewHandler(HandlerOptions{
		Gateway: gw,
		Tracing: tp,
		Config: HandlerConfig{
			BasePath: cfg.HTTP.BasePath,
			Version:  opts.Version,
			Logger:   logger,
		},
	})
	srv := &Server{HTTP: NewServer(cfg.HTTP, handler), Config: cfg.HTTP, Logger: logger}
	return srv.Serve(ctx, nil)
}
