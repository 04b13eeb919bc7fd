package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/oformaniuk/fwda/config"
	httpx "github.com/oformaniuk/fwda/internal/http"
	"github.com/oformaniuk/fwda/internal/observability/tracing"
)

// HandlerOptions groups inputs for NewHandler.
type HandlerOptions struct {
	Gateway *Gateway // Required
	Tracing *tracing.Provider
	Config  HandlerConfig
}

// HandlerConfig holds the plain settings the router needs.
type HandlerConfig struct {
	BasePath string
	Version  string
	Logger   *slog.Logger
}

// NewHandler builds the router with its middleware chain.
func NewHandler(opts HandlerOptions) http.Handler {
	gw := opts.Gateway
	var metricsHandler http.Handler
	if gw.Metrics != nil {
		metricsHandler = gw.Metrics.Handler()
	}
	return httpx.NewRouter(httpx.RouterServices{
		Auth:     gw.Auth,
		Portals:  gw.Registry,
		Version:  opts.Config.Version,
		BasePath: opts.Config.BasePath,
		Metrics:  metricsHandler,
		Tracing:  opts.Tracing,
		Logger:   opts.Config.Logger,
	})
}

// NewServer applies the listener settings to an http.Server.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Server runs an http.Server until its context is canceled, then drains it.
type Server struct {
	HTTP   *http.Server
	Config config.HTTPConfig
	Logger *slog.Logger
}

// Serve blocks until ctx is canceled or the listener fails. A nil ln listens
// on the server's Addr.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if ln != nil {
			logger.InfoContext(ctx, "starting HTTP server", "addr", ln.Addr().String())
			err = s.HTTP.Serve(ln)
		} else {
			logger.InfoContext(ctx, "starting HTTP server", "addr", s.HTTP.Addr)
			err = s.HTTP.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(ctx, "shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config.ShutdownTimeout)
		defer cancel()
		if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.InfoContext(ctx, "HTTP server stopped")
		return nil
	})
	return g.Wait()
}
