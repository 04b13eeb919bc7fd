package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/observability/metrics"
	"github.com/oformaniuk/fwda/internal/portal"
)

// unknownPortalLabel keeps arbitrary path segments out of metric labels.
const unknownPortalLabel = "_unknown"

// AuthServiceConfig holds optional collaborators for AuthService.
type AuthServiceConfig struct {
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Registry *portal.Registry // Required
	Schemes  *SchemeSet       // Required
	Config   AuthServiceConfig
}

// AuthService drives the per-portal endpoint state machine: auth checks,
// sign-in challenges, provider callbacks and sign-out.
type AuthService struct {
	registry *portal.Registry
	schemes  *SchemeSet
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Registry == nil {
		panic("AuthService requires a Registry")
	}
	if opts.Schemes == nil {
		panic("AuthService requires a SchemeSet")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		registry: opts.Registry,
		schemes:  opts.Schemes,
		metrics:  metrics.OrNoop(opts.Config.Metrics),
		logger:   logger.With("component", "auth_service"),
	}
}

// Registry exposes the portal registry the service was built with.
func (s *AuthService) Registry() *portal.Registry { return s.registry }

// CheckResult is the verdict of a forward-auth check.
type CheckResult struct {
	KnownPortal bool
	// Principal is set only when the caller is authenticated for the portal.
	Principal *domainauth.Principal
}

// Check authenticates the request against the portal's cookie scheme. A
// principal minted for another portal never passes. Errors are ticket cache
// failures only.
func (s *AuthService) Check(w http.ResponseWriter, r *http.Request, portalName string) (CheckResult, error) {
	res, err := s.authenticate(w, r, portalName)
	switch {
	case !res.KnownPortal:
		s.metrics.AuthCheck(unknownPortalLabel, metrics.ResultUnknownPortal)
	case err != nil:
		s.metrics.AuthCheck(portalName, metrics.Outcome(err))
	case res.Principal == nil:
		s.metrics.AuthCheck(portalName, metrics.ResultAnonymous)
	default:
		s.metrics.AuthCheck(portalName, metrics.ResultAuthenticated)
	}
	return res, err
}

func (s *AuthService) authenticate(w http.ResponseWriter, r *http.Request, portalName string) (CheckResult, error) {
	cookie, ok := s.schemes.Cookie(portalName)
	if !ok {
		return CheckResult{}, nil
	}
	res, err := cookie.Authenticate(w, r)
	if err != nil {
		return CheckResult{KnownPortal: true}, err
	}
	if res == nil || !res.Principal.ValidFor(portalName) {
		return CheckResult{KnownPortal: true}, nil
	}
	principal := res.Principal
	return CheckResult{KnownPortal: true, Principal: &principal}, nil
}

// SignInResult tells the handler what SignIn did. When RedirectURL is set the
// caller was already authenticated and should be sent there; otherwise the
// challenge redirect has been written to the response.
type SignInResult struct {
	RedirectURL string
}

// SignIn starts the provider login for a portal, or short-circuits to the
// return URL when the caller already holds a session for it.
func (s *AuthService) SignIn(w http.ResponseWriter, r *http.Request, portalName string) (SignInResult, error) {
	p, ok := s.registry.Get(portalName)
	if !ok {
		s.metrics.Challenge(unknownPortalLabel, metrics.ResultUnknownPortal)
		return SignInResult{}, apperrors.NotFoundf("portal %q not found", portalName)
	}
	returnURL := s.resolveReturnURL(r, p)

	check, err := s.authenticate(w, r, portalName)
	if err != nil {
		s.metrics.Challenge(portalName, metrics.Outcome(err))
		return SignInResult{}, fmt.Errorf("sign in: %w", err)
	}
	if check.Principal != nil {
		s.metrics.Challenge(portalName, metrics.ResultAuthenticated)
		return SignInResult{RedirectURL: returnURL}, nil
	}

	if !p.OIDCEligible() {
		err := apperrors.Configurationf("portal %s has no OIDC configuration", portalName)
		s.metrics.Challenge(portalName, metrics.Outcome(err))
		return SignInResult{}, err
	}
	scheme, err := s.schemes.OIDC(portalName)
	if err != nil {
		s.metrics.Challenge(portalName, metrics.Outcome(err))
		return SignInResult{}, err
	}
	if err := scheme.Challenge(w, r, returnURL); err != nil {
		s.metrics.Challenge(portalName, metrics.Outcome(err))
		return SignInResult{}, fmt.Errorf("sign in: %w", err)
	}
	s.metrics.Challenge(portalName, metrics.ResultRedirected)
	return SignInResult{}, nil
}

// CallbackOutcome tells the handler how to answer a provider callback:
// a redirect on success, a bare status on a handled remote failure.
type CallbackOutcome struct {
	RedirectURL string
	StatusCode  int
}

// Callback completes the provider round trip for a portal.
func (s *AuthService) Callback(w http.ResponseWriter, r *http.Request, portalName string) (CallbackOutcome, error) {
	p, ok := s.registry.Get(portalName)
	if !ok {
		s.metrics.Callback(unknownPortalLabel, metrics.ResultUnknownPortal)
		return CallbackOutcome{}, apperrors.NotFoundf("portal %q not found", portalName)
	}
	if !p.OIDCEligible() {
		s.metrics.Callback(portalName, metrics.ResultUnknownPortal)
		return CallbackOutcome{}, apperrors.NotFoundf("portal %q has no sign-in callback", portalName)
	}
	scheme, err := s.schemes.OIDC(portalName)
	if err != nil {
		s.metrics.Callback(portalName, metrics.Outcome(err))
		return CallbackOutcome{}, err
	}

	res, err := scheme.HandleCallback(w, r)
	if err != nil {
		s.metrics.Callback(portalName, metrics.Outcome(err))
		return CallbackOutcome{}, err
	}
	if res.Override != nil {
		s.metrics.Callback(portalName, string(apperrors.ErrCodeRemoteProvider))
		return CallbackOutcome{StatusCode: res.Override.StatusCode}, nil
	}

	target := res.Principal.ReturnURL
	if !domainauth.IsAllowedReturnURL(target, p.CookieDomain, p.Hostname) {
		target = domainauth.DefaultReturnURL(p.Hostname)
	}
	s.metrics.Callback(portalName, metrics.ResultSuccess)
	return CallbackOutcome{RedirectURL: target}, nil
}

// SignOut signs the caller out of the portal's cookie scheme and the default
// scheme. Both cookies are expired even when ticket removal fails.
func (s *AuthService) SignOut(w http.ResponseWriter, r *http.Request, portalName string) error {
	cookie, ok := s.schemes.Cookie(portalName)
	if !ok {
		return apperrors.NotFoundf("portal %q not found", portalName)
	}
	err := errors.Join(cookie.SignOut(w, r), s.schemes.Default().SignOut(w, r))
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.logger.InfoContext(r.Context(), "signed out", "portal", portalName)
	return nil
}

// resolveReturnURL picks the post-login target: the returnUrl query
// parameter, else the URL the proxy reports the browser asked for. Targets
// outside the portal's hostname and cookie domain fall back to the portal root.
func (s *AuthService) resolveReturnURL(r *http.Request, p portal.Config) string {
	target := r.URL.Query().Get("returnUrl")
	if target == "" && r.Header.Get("X-Forwarded-Uri") != "" {
		target = domainauth.ReconstructReturnURL(r)
	}
	if !domainauth.IsAllowedReturnURL(target, p.CookieDomain, p.Hostname) {
		if target != "" {
			s.logger.WarnContext(r.Context(), "return url rejected", "portal", p.Name, "return_url", target)
		}
		return domainauth.DefaultReturnURL(p.Hostname)
	}
	return target
}
