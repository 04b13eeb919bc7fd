package service

import (
	"log/slog"
	"net/http"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
)

// MessageContext describes a provider message arriving at a callback.
type MessageContext struct {
	Portal string
	// Parameters lists the query parameter names present, never their values.
	Parameters []string
	HasError   bool
}

// RedirectContext describes a challenge about to be sent to the provider.
// Request must be treated as read-only.
type RedirectContext struct {
	Portal              string
	BasePath            string
	CallbackPath        string
	OriginalRedirectURI string
	Request             *http.Request
}

// RedirectMutation replaces the redirect URI sent to the provider.
type RedirectMutation struct {
	RedirectURI string
}

// TokenValidatedContext carries the validated provider assertion.
type TokenValidatedContext struct {
	Portal     string
	RolesClaim string
	ReturnURL  string
	Assertion  domainauth.Assertion
}

// TokenValidatedMutation is the principal that replaces the provider's.
// A non-nil Err rejects the sign-in.
type TokenValidatedMutation struct {
	Principal domainauth.Principal
	Err       error
}

// RemoteFailureContext describes a failed provider round trip.
type RemoteFailureContext struct {
	Portal string
	Err    error
}

// ResponseOverride is written instead of the default failure response.
type ResponseOverride struct {
	StatusCode int
	Handled    bool
}

// Hooks are the protocol callbacks of an OIDC scheme. Each is a pure
// function of its context; effects happen in the scheme that applies the result.
type Hooks struct {
	OnMessageReceived    func(MessageContext)
	OnRedirectToProvider func(RedirectContext) RedirectMutation
	OnTokenValidated     func(TokenValidatedContext) TokenValidatedMutation
	OnRemoteFailure      func(RemoteFailureContext) ResponseOverride
}

// DefaultHooks returns the gateway's standard hook set.
func DefaultHooks(logger *slog.Logger) Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return Hooks{
		OnMessageReceived: func(c MessageContext) {
			logger.Debug("oidc message received",
				"portal", c.Portal,
				"parameters", c.Parameters,
				"has_error", c.HasError,
			)
		},
		OnRedirectToProvider: func(c RedirectContext) RedirectMutation {
			uri := domainauth.SynthesizeRedirectURI(c.Request, c.BasePath, c.CallbackPath)
			logger.Info("oidc redirect uri synthesized",
				"portal", c.Portal,
				"original_redirect_uri", c.OriginalRedirectURI,
				"redirect_uri", uri,
			)
			return RedirectMutation{RedirectURI: uri}
		},
		OnTokenValidated: func(c TokenValidatedContext) TokenValidatedMutation {
			p, err := domainauth.Minimize(domainauth.MinimizeInput{
				Claims:     c.Assertion.Claims,
				RolesClaim: c.RolesClaim,
				Portal:     c.Portal,
				ReturnURL:  c.ReturnURL,
			})
			return TokenValidatedMutation{Principal: p, Err: err}
		},
		OnRemoteFailure: func(c RemoteFailureContext) ResponseOverride {
			logger.Warn("oidc remote failure", "portal", c.Portal, "error", c.Err)
			return ResponseOverride{StatusCode: http.StatusUnauthorized, Handled: true}
		},
	}
}

// withDefaults fills unset hooks from DefaultHooks.
func (h Hooks) withDefaults(logger *slog.Logger) Hooks {
	d := DefaultHooks(logger)
	if h.OnMessageReceived == nil {
		h.OnMessageReceived = d.OnMessageReceived
	}
	if h.OnRedirectToProvider == nil {
		h.OnRedirectToProvider = d.OnRedirectToProvider
	}
	if h.OnTokenValidated == nil {
		h.OnTokenValidated = d.OnTokenValidated
	}
	if h.OnRemoteFailure == nil {
		h.OnRemoteFailure = d.OnRemoteFailure
	}
	return h
}
