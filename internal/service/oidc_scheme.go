package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/ports"
)

// CorrelationTTL bounds the time between a challenge and its callback.
const CorrelationTTL = 10 * time.Minute

// correlation is what the browser carries from the challenge to the callback.
type correlation struct {
	State       string `json:"s"`
	Nonce       string `json:"n"`
	Verifier    string `json:"v"`
	RedirectURI string `json:"r"`
	ReturnURL   string `json:"u,omitempty"`
	Expires     int64  `json:"e"`
}

// CallbackResult is the outcome of a provider callback. Exactly one of
// Principal and Override is set.
type CallbackResult struct {
	Principal *domainauth.Principal
	Override  *ResponseOverride
}

// OIDCScheme runs the authorization-code round trip for one portal and
// signs the minimized principal into the portal's cookie scheme.
type OIDCScheme struct {
	name     string
	portal   portal.Config
	basePath string
	provider ports.AuthProvider
	signIn   *CookieScheme
	codec    CookieCodec
	hooks    Hooks
	logger   *slog.Logger
	now      func() time.Time
}

// Name is the scheme name, e.g. oidc-portal1.
func (o *OIDCScheme) Name() string { return o.name }

// SignInScheme is the cookie scheme that receives the principal.
func (o *OIDCScheme) SignInScheme() *CookieScheme { return o.signIn }

// CallbackPath is the path the provider returns the browser to.
func (o *OIDCScheme) CallbackPath() string { return domainauth.CallbackPath(o.portal.Name) }

// Challenge starts a sign-in: it asks the provider for an authorization URL
// bound to a synthesized redirect URI, stores the correlation cookie, and
// redirects the browser.
func (o *OIDCScheme) Challenge(w http.ResponseWriter, r *http.Request, returnURL string) error {
	ctx := r.Context()
	mutation := o.hooks.OnRedirectToProvider(RedirectContext{
		Portal:              o.portal.Name,
		BasePath:            o.basePath,
		CallbackPath:        o.CallbackPath(),
		OriginalRedirectURI: requestOrigin(r) + o.basePath + o.CallbackPath(),
		Request:             r,
	})

	begin, err := o.provider.Begin(ctx, ports.BeginInput{RedirectURI: mutation.RedirectURI})
	if err != nil {
		return fmt.Errorf("challenge %s: %w", o.name, err)
	}

	value, err := o.codec.Encode(o.correlationCookie(), correlation{
		State:       begin.State,
		Nonce:       begin.Nonce,
		Verifier:    begin.Verifier,
		RedirectURI: mutation.RedirectURI,
		ReturnURL:   returnURL,
		Expires:     o.now().Add(CorrelationTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("challenge %s: encode correlation: %w", o.name, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     o.correlationCookie(),
		Value:    value,
		Path:     "/",
		Domain:   o.portal.CookieDomain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(CorrelationTTL.Seconds()),
	})

	o.logger.InfoContext(ctx, "redirecting to identity provider", "redirect_uri", mutation.RedirectURI)
	http.Redirect(w, r, begin.AuthURL, http.StatusFound)
	return nil
}

// HandleCallback completes the round trip. Provider and protocol failures are
// routed through OnRemoteFailure and reported as an Override; only sign-in
// storage failures are returned as errors.
func (o *OIDCScheme) HandleCallback(w http.ResponseWriter, r *http.Request) (*CallbackResult, error) {
	ctx := r.Context()
	q := r.URL.Query()

	params := make([]string, 0, len(q))
	for k := range q {
		params = append(params, k)
	}
	slices.Sort(params)
	o.hooks.OnMessageReceived(MessageContext{Portal: o.portal.Name, Parameters: params, HasError: q.Has("error")})

	if e := q.Get("error"); e != "" {
		return o.fail(fmt.Errorf("provider returned %q: %s", e, q.Get("error_description"))), nil
	}

	corr, err := o.readCorrelation(r)
	clearCookie(w, o.correlationCookie(), o.portal.CookieDomain)
	if err != nil {
		return o.fail(err), nil
	}
	if state := q.Get("state"); state == "" || state != corr.State {
		return o.fail(errors.New("state mismatch")), nil
	}
	code := q.Get("code")
	if code == "" {
		return o.fail(errors.New("authorization code missing")), nil
	}

	assertion, err := o.provider.Exchange(ctx, ports.ExchangeInput{
		Code:        code,
		Nonce:       corr.Nonce,
		Verifier:    corr.Verifier,
		RedirectURI: corr.RedirectURI,
	})
	if err != nil {
		return o.fail(err), nil
	}

	var rolesClaim string
	if o.portal.OIDC != nil {
		rolesClaim = o.portal.OIDC.RolesClaim
	}
	validated := o.hooks.OnTokenValidated(TokenValidatedContext{
		Portal:     o.portal.Name,
		RolesClaim: rolesClaim,
		ReturnURL:  corr.ReturnURL,
		Assertion:  assertion,
	})
	if validated.Err != nil {
		return o.fail(validated.Err), nil
	}

	principal := validated.Principal
	if _, err := o.signIn.SignIn(w, r, SignInInput{
		Principal:       principal,
		Issuer:          assertion.Issuer,
		AuthenticatedAt: assertion.AuthenticatedAt,
	}); err != nil {
		return nil, fmt.Errorf("callback %s: %w", o.name, err)
	}
	return &CallbackResult{Principal: &principal}, nil
}

func (o *OIDCScheme) fail(err error) *CallbackResult {
	override := o.hooks.OnRemoteFailure(RemoteFailureContext{
		Portal: o.portal.Name,
		Err:    apperrors.Wrap(err, apperrors.ErrCodeRemoteProvider, "remote sign-in failed"),
	})
	if override.StatusCode == 0 {
		override.StatusCode = http.StatusUnauthorized
	}
	return &CallbackResult{Override: &override}
}

func (o *OIDCScheme) readCorrelation(r *http.Request) (correlation, error) {
	var corr correlation
	cookie, err := r.Cookie(o.correlationCookie())
	if err != nil {
		return corr, errors.New("correlation cookie missing")
	}
	if err := o.codec.Decode(o.correlationCookie(), cookie.Value, &corr); err != nil {
		return corr, fmt.Errorf("correlation cookie invalid: %w", err)
	}
	if o.now().Unix() > corr.Expires {
		return corr, errors.New("correlation cookie expired")
	}
	return corr, nil
}

func (o *OIDCScheme) correlationCookie() string {
	return domainauth.CorrelationCookieName(o.portal.Name)
}

// requestOrigin is the scheme and host as the gateway itself received them,
// before any forwarded headers are applied.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
