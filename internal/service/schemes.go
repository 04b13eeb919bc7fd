package service

import (
	"log/slog"
	"sort"
	"time"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/ports"
)

// ProviderFactory builds the provider adapter for an OIDC-eligible portal.
type ProviderFactory func(p portal.Config) (ports.AuthProvider, error)

// SchemeSetConfig holds the collaborators shared by every scheme.
type SchemeSetConfig struct {
	// Cookies protects session cookie values. Required.
	Cookies CookieCodec
	// Correlation protects correlation cookie values. Defaults to Cookies.
	Correlation CookieCodec
	// Providers builds OIDC providers. Required when any portal is OIDC-eligible.
	Providers ProviderFactory
	Hooks     Hooks
	BasePath  string
	Logger    *slog.Logger
	Now       func() time.Time
}

// SchemeSetOptions groups dependencies for NewSchemeSet.
type SchemeSetOptions struct {
	Registry *portal.Registry  // Required
	Tickets  ports.TicketStore // Required
	Config   SchemeSetConfig
}

// SchemeSet is the immutable set of authentication schemes built once at
// startup: cookie-{p} for every portal, oidc-{p} for OIDC-eligible portals,
// plus the default cookie scheme.
type SchemeSet struct {
	cookies   map[string]*CookieScheme
	oidc      map[string]*OIDCScheme
	defaultCk *CookieScheme
	skipped   map[string]error
}

type schemeDeps struct {
	tickets ports.TicketStore
	cookies CookieCodec
	logger  *slog.Logger
	now     func() time.Time
}

// NewSchemeSet registers the schemes for every portal in the registry.
// A portal whose provider cannot be built gets no OIDC scheme; the failure is
// logged and reported by Skipped, and the rest of the set is unaffected.
func NewSchemeSet(opts SchemeSetOptions) *SchemeSet {
	if opts.Registry == nil {
		panic("SchemeSet requires a Registry")
	}
	if opts.Tickets == nil {
		panic("SchemeSet requires a TicketStore")
	}
	cfg := opts.Config
	if cfg.Cookies == nil {
		panic("SchemeSet requires a cookie codec")
	}
	if cfg.Correlation == nil {
		cfg.Correlation = cfg.Cookies
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	hooks := cfg.Hooks.withDefaults(cfg.Logger)

	deps := schemeDeps{tickets: opts.Tickets, cookies: cfg.Cookies, logger: cfg.Logger, now: cfg.Now}
	timeout := opts.Registry.SessionTimeout()

	set := &SchemeSet{
		cookies: make(map[string]*CookieScheme, opts.Registry.Len()),
		oidc:    make(map[string]*OIDCScheme),
		skipped: make(map[string]error),
		defaultCk: newCookieScheme(CookieSchemeConfig{
			Name:       domainauth.DefaultCookieScheme,
			CookieName: domainauth.DefaultCookieName,
			Timeout:    timeout,
		}, deps),
	}

	for _, p := range opts.Registry.All() {
		cookie := newCookieScheme(CookieSchemeConfig{
			Name:       domainauth.CookieScheme(p.Name),
			Portal:     p.Name,
			CookieName: domainauth.CookieName(p.Name),
			Domain:     p.CookieDomain,
			Timeout:    timeout,
		}, deps)
		set.cookies[p.Name] = cookie

		if !p.OIDCEligible() {
			cfg.Logger.Info("portal has no oidc scheme", "portal", p.Name)
			continue
		}
		if cfg.Providers == nil {
			set.skip(cfg.Logger, p.Name, apperrors.Configurationf("no provider factory for portal %s", p.Name))
			continue
		}
		provider, err := cfg.Providers(p)
		if err != nil {
			set.skip(cfg.Logger, p.Name, err)
			continue
		}

		name := domainauth.OIDCScheme(p.Name)
		set.oidc[p.Name] = &OIDCScheme{
			name:     name,
			portal:   p,
			basePath: cfg.BasePath,
			provider: provider,
			signIn:   cookie,
			codec:    cfg.Correlation,
			hooks:    hooks,
			logger:   cfg.Logger.With("scheme", name),
			now:      cfg.Now,
		}
		cfg.Logger.Info("registered oidc scheme",
			"portal", p.Name,
			"scheme", name,
			"issuer", p.OIDC.Issuer,
			"metadata_address", p.OIDC.IsMetadataAddress(),
			"require_https_metadata", p.OIDC.RequireHTTPSMetadata(),
			"scopes", p.OIDC.Scopes,
		)
	}
	return set
}

func (s *SchemeSet) skip(logger *slog.Logger, portalName string, err error) {
	s.skipped[portalName] = err
	logger.Error("oidc scheme not registered", "portal", portalName, "error", err)
}

// Cookie returns the cookie scheme of a portal.
func (s *SchemeSet) Cookie(portalName string) (*CookieScheme, bool) {
	c, ok := s.cookies[portalName]
	return c, ok
}

// OIDC returns the OIDC scheme of a portal, or an UnregisteredScheme error.
func (s *SchemeSet) OIDC(portalName string) (*OIDCScheme, error) {
	if o, ok := s.oidc[portalName]; ok {
		return o, nil
	}
	return nil, apperrors.UnregisteredSchemef(
		"authentication scheme %s is not registered; schemes are built at startup, restart the gateway after changing the portal document",
		domainauth.OIDCScheme(portalName),
	)
}

// Default returns the process-wide default cookie scheme.
func (s *SchemeSet) Default() *CookieScheme { return s.defaultCk }

// Skipped reports portals that were eligible for OIDC but got no scheme.
func (s *SchemeSet) Skipped() map[string]error {
	out := make(map[string]error, len(s.skipped))
	for k, v := range s.skipped {
		out[k] = v
	}
	return out
}

// Names lists every registered scheme name, sorted.
func (s *SchemeSet) Names() []string {
	names := []string{s.defaultCk.Name()}
	for _, c := range s.cookies {
		names = append(names, c.Name())
	}
	for _, o := range s.oidc {
		names = append(names, o.Name())
	}
	sort.Strings(names)
	return names
}
