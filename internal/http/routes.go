package httpx

import (
	"log/slog"
	"net/http"

	"github.com/oformaniuk/fwda/internal/observability/tracing"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth    AuthServiceInterface // Required
	Portals PortalLister
	Version string
	// BasePath is stripped from request paths that carry it.
	BasePath string
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// Tracing instruments each route when enabled. Nil disables tracing.
	Tracing *tracing.Provider
	Logger  *slog.Logger
}

// NewRouter creates the gateway router wrapped in the standard middleware
// chain: request id, logging, panic recovery, path base, then the forced
// 401 guard closest to the routes.
func NewRouter(services RouterServices) http.Handler {
	if services.Auth == nil {
		panic("NewRouter requires an auth service") //nolint:forbidigo // Fail fast during server setup.
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	rt := routeTable{mux: mux, tracing: services.Tracing}

	registerAuthRoutes(rt, &AuthHandlers{Svc: services.Auth, Logger: logger})
	registerStatusRoutes(rt, &StatusHandlers{Portals: services.Portals, Version: services.Version})
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	return Chain(mux,
		RequestID(),
		Logging(logger),
		Recover(logger),
		PathBase(services.BasePath),
		ForceUnauthorized(),
	)
}

// routeTable registers handlers on mux, naming each span after its pattern.
type routeTable struct {
	mux     *http.ServeMux
	tracing *tracing.Provider
}

func (rt routeTable) handle(pattern string, h http.HandlerFunc) {
	rt.mux.Handle(pattern, rt.tracing.Wrap(h, pattern))
}

func registerAuthRoutes(rt routeTable, h *AuthHandlers) {
	rt.handle("GET /auth/{portal}", h.Check)
	rt.handle("HEAD /auth/{portal}", h.Check)
	rt.handle("GET /signin/{portal}", h.SignIn)
	rt.handle("GET /portals/{portal}/signin", h.SignIn)
	rt.handle("GET /callback/{portal}", h.Callback)
	rt.handle("GET /signout/{portal}", h.SignOut)
}

func registerStatusRoutes(rt routeTable, h *StatusHandlers) {
	rt.handle("GET /health", h.Health)
	rt.handle("GET /{$}", h.Root)
}
