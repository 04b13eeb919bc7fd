// Package portal holds the per-process snapshot of portal configuration.
//
// A Registry is built once at start-up and never mutated. Handlers and the
// scheme orchestrator receive it by reference.
package portal

import (
	"slices"
	"strings"
	"time"

	"github.com/oformaniuk/fwda/internal/secrets"
)

const (
	// DefaultSessionTimeout applies when session_timeout_minutes is absent or zero.
	DefaultSessionTimeout = 60 * time.Minute
	// DefaultRolesClaim is evaluated against provider claims when roles_claim is blank.
	DefaultRolesClaim = "roles"

	metadataMarker = "/.well-known/openid-configuration"
)

// DefaultScopes are requested when a portal's oidc section has no scopes key.
var DefaultScopes = []string{"openid", "profile", "email"}

// OIDCConfig is the identity provider section of a portal.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret secrets.Value
	Scopes       []string
	RolesClaim   string
}

// IsMetadataAddress reports whether Issuer points at a discovery document
// rather than an authority.
func (o *OIDCConfig) IsMetadataAddress() bool {
	return strings.Contains(o.Issuer, metadataMarker)
}

// RequireHTTPSMetadata reports whether discovered endpoints must use https.
func (o *OIDCConfig) RequireHTTPSMetadata() bool {
	return strings.HasPrefix(strings.ToLower(o.Issuer), "https://")
}

// Config is one portal. Name is the registry key and drives paths, cookie
// names and scheme names.
type Config struct {
	Name         string
	Display      string
	Hostname     string
	CookieDomain string
	OIDC         *OIDCConfig
}

// OIDCEligible reports whether the portal can run an OIDC login: both the
// client id and the issuer must be non-blank.
func (c Config) OIDCEligible() bool {
	return c.OIDC != nil &&
		strings.TrimSpace(c.OIDC.ClientID) != "" &&
		strings.TrimSpace(c.OIDC.Issuer) != ""
}

// clone returns a copy that shares no mutable state with c.
func (c Config) clone() Config {
	if c.OIDC != nil {
		o := *c.OIDC
		if o.Scopes != nil {
			o.Scopes = slices.Clone(o.Scopes)
		}
		c.OIDC = &o
	}
	return c
}

// Registry is an immutable set of portals keyed by name. Get and All hand out
// deep copies.
type Registry struct {
	portals        map[string]Config
	names          []string
	sessionSecret  secrets.Value
	sessionTimeout time.Duration
}

// Settings are the document-level values outside the portal map.
type Settings struct {
	SessionSecret  secrets.Value
	SessionTimeout time.Duration
}

// NewRegistry builds a Registry from already-decoded portals.
func NewRegistry(settings Settings, portals ...Config) *Registry {
	r := &Registry{
		portals:        make(map[string]Config, len(portals)),
		sessionSecret:  settings.SessionSecret,
		sessionTimeout: settings.SessionTimeout,
	}
	if r.sessionTimeout <= 0 {
		r.sessionTimeout = DefaultSessionTimeout
	}
	for _, p := range portals {
		if _, dup := r.portals[p.Name]; !dup {
			r.names = append(r.names, p.Name)
		}
		r.portals[p.Name] = p.clone()
	}
	slices.Sort(r.names)
	return r
}

// Get returns the portal registered under name.
func (r *Registry) Get(name string) (Config, bool) {
	p, ok := r.portals[name]
	return p.clone(), ok
}

// Names returns the portal keys in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Len returns the number of portals.
func (r *Registry) Len() int {
	return len(r.names)
}

// All returns every portal sorted by name.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.portals[n].clone())
	}
	return out
}

// SessionTimeout is the sliding lifetime of an authenticated session.
func (r *Registry) SessionTimeout() time.Duration {
	return r.sessionTimeout
}

// SessionSecret is decrypted at load and held for future use. Nothing in the
// authentication flow derives keys from it.
func (r *Registry) SessionSecret() secrets.Value {
	return r.sessionSecret
}
