package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	"github.com/oformaniuk/fwda/internal/ports"
)

// CookieCodec signs and encrypts cookie values. The cookie name is bound
// into the value, so a value minted for one cookie does not decode as another.
// *securecookie.SecureCookie satisfies it.
type CookieCodec interface {
	Encode(name string, value any) (string, error)
	Decode(name, value string, dst any) error
}

// CookieSchemeConfig describes one cookie scheme.
type CookieSchemeConfig struct {
	Name       string
	Portal     string // empty for the default scheme
	CookieName string
	Domain     string
	Timeout    time.Duration
}

// CookieScheme authenticates requests from a session cookie holding a
// ticket handle, and issues or clears that cookie.
type CookieScheme struct {
	cfg     CookieSchemeConfig
	tickets ports.TicketStore
	codec   CookieCodec
	logger  *slog.Logger
	now     func() time.Time
}

// AuthenticateResult is a successful cookie authentication.
type AuthenticateResult struct {
	Principal domainauth.Principal
	Ticket    *domainauth.Ticket
	Handle    domainauth.TicketHandle
	Renewed   bool
}

// SignInInput is what the OIDC scheme hands to its sign-in scheme.
type SignInInput struct {
	Principal       domainauth.Principal
	Issuer          string
	AuthenticatedAt time.Time
}

func newCookieScheme(cfg CookieSchemeConfig, deps schemeDeps) *CookieScheme {
	return &CookieScheme{
		cfg:     cfg,
		tickets: deps.tickets,
		codec:   deps.cookies,
		logger:  deps.logger.With("scheme", cfg.Name),
		now:     deps.now,
	}
}

// Name is the scheme name, e.g. cookie-portal1.
func (c *CookieScheme) Name() string { return c.cfg.Name }

// CookieName is the session cookie this scheme reads and writes.
func (c *CookieScheme) CookieName() string { return c.cfg.CookieName }

// Authenticate resolves the request's session. It returns nil, nil when the
// request carries no usable session; only ticket cache failures are errors.
// Tickets past half their lifetime are renewed and the cookie reissued on w.
func (c *CookieScheme) Authenticate(w http.ResponseWriter, r *http.Request) (*AuthenticateResult, error) {
	ctx := r.Context()
	handle, ok := c.readHandle(r)
	if !ok {
		return nil, nil
	}

	ticket, err := c.tickets.Retrieve(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", c.cfg.Name, err)
	}
	if ticket == nil {
		return nil, nil
	}

	now := c.now()
	if ticket.Expired(now) {
		if err := c.tickets.Remove(ctx, handle); err != nil {
			c.logger.WarnContext(ctx, "remove expired ticket failed", "error", err)
		}
		c.expireCookie(w)
		return nil, nil
	}

	res := &AuthenticateResult{Principal: ticket.Principal, Ticket: ticket, Handle: handle}
	if ticket.NeedsRenewal(now) {
		c.renew(ctx, w, res, now)
	}
	return res, nil
}

func (c *CookieScheme) renew(ctx context.Context, w http.ResponseWriter, res *AuthenticateResult, now time.Time) {
	renewed := *res.Ticket
	renewed.IssuedAt = now
	renewed.ExpiresAt = now.Add(c.cfg.Timeout)
	if err := c.tickets.Renew(ctx, res.Handle, &renewed); err != nil {
		// The current ticket is still valid; the next request retries.
		c.logger.WarnContext(ctx, "ticket renewal failed", "error", err)
		return
	}
	if err := c.writeCookie(w, res.Handle); err != nil {
		c.logger.WarnContext(ctx, "reissue session cookie failed", "error", err)
		return
	}
	res.Ticket = &renewed
	res.Renewed = true
}

// SignIn stores a new ticket for in.Principal and sets the session cookie.
// A ticket referenced by an existing cookie of this scheme is discarded.
func (c *CookieScheme) SignIn(w http.ResponseWriter, r *http.Request, in SignInInput) (domainauth.TicketHandle, error) {
	ctx := r.Context()
	if previous, ok := c.readHandle(r); ok {
		if err := c.tickets.Remove(ctx, previous); err != nil {
			c.logger.WarnContext(ctx, "discard previous ticket failed", "error", err)
		}
	}

	now := c.now()
	authenticatedAt := in.AuthenticatedAt
	if authenticatedAt.IsZero() {
		authenticatedAt = now
	}
	ticket := &domainauth.Ticket{
		Principal:       in.Principal,
		Scheme:          c.cfg.Name,
		Issuer:          in.Issuer,
		AuthenticatedAt: authenticatedAt,
		IssuedAt:        now,
		ExpiresAt:       now.Add(c.cfg.Timeout),
	}
	handle, err := c.tickets.Store(ctx, ticket)
	if err != nil {
		return "", fmt.Errorf("sign in %s: %w", c.cfg.Name, err)
	}
	if err := c.writeCookie(w, handle); err != nil {
		return "", fmt.Errorf("sign in %s: %w", c.cfg.Name, err)
	}
	c.logger.InfoContext(ctx, "signed in", "subject", in.Principal.Subject)
	return handle, nil
}

// SignOut removes the referenced ticket and expires the cookie. The cookie is
// expired even when removal fails.
func (c *CookieScheme) SignOut(w http.ResponseWriter, r *http.Request) error {
	handle, ok := c.readHandle(r)
	c.expireCookie(w)
	if !ok {
		return nil
	}
	if err := c.tickets.Remove(r.Context(), handle); err != nil {
		return fmt.Errorf("sign out %s: %w", c.cfg.Name, err)
	}
	return nil
}

func (c *CookieScheme) readHandle(r *http.Request) (domainauth.TicketHandle, bool) {
	cookie, err := r.Cookie(c.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var raw string
	if err := c.codec.Decode(c.cfg.CookieName, cookie.Value, &raw); err != nil {
		c.logger.DebugContext(r.Context(), "session cookie rejected", "error", err)
		return "", false
	}
	handle := domainauth.TicketHandle(raw)
	if !handle.Valid() {
		return "", false
	}
	return handle, true
}

func (c *CookieScheme) writeCookie(w http.ResponseWriter, handle domainauth.TicketHandle) error {
	if handle == "" {
		return errors.New("empty ticket handle")
	}
	value, err := c.codec.Encode(c.cfg.CookieName, string(handle))
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.cfg.Timeout.Seconds()),
		Expires:  c.now().Add(c.cfg.Timeout).UTC(),
	})
	return nil
}

func (c *CookieScheme) expireCookie(w http.ResponseWriter) {
	clearCookie(w, c.cfg.CookieName, c.cfg.Domain)
}

// clearCookie expires a cookie, mirroring the attributes used when it was set.
func clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
