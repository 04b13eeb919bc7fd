package service

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	authmocks "github.com/oformaniuk/fwda/internal/mocks/auth"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/ports"
)

func TestNewSchemeSet_Registration(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{
		"Cookies",
		"cookie-portal1",
		"cookie-portal2",
		"cookie-static",
		"oidc-portal1",
		"oidc-portal2",
	}, f.schemes.Names())

	for _, name := range []string{"portal1", "portal2", "static"} {
		c, ok := f.schemes.Cookie(name)
		require.True(t, ok, name)
		assert.Equal(t, "fwda-"+name, c.CookieName())
	}

	o, err := f.schemes.OIDC("portal1")
	require.NoError(t, err)
	assert.Equal(t, "oidc-portal1", o.Name())
	assert.Equal(t, "/callback/portal1", o.CallbackPath())
	assert.Same(t, mustCookie(t, f.schemes, "portal1"), o.SignInScheme())

	_, err = f.schemes.OIDC("static")
	assert.True(t, apperrors.IsUnregisteredScheme(err))

	assert.Equal(t, domainauth.DefaultCookieScheme, f.schemes.Default().Name())
	assert.Equal(t, domainauth.DefaultCookieName, f.schemes.Default().CookieName())
	assert.Empty(t, f.schemes.Skipped())
}

func mustCookie(t *testing.T, s *SchemeSet, name string) *CookieScheme {
	t.Helper()
	c, ok := s.Cookie(name)
	require.True(t, ok)
	return c
}

func TestNewSchemeSet_EligibilityNeedsClientIDAndIssuer(t *testing.T) {
	registry := portal.NewRegistry(portal.Settings{},
		portal.Config{Name: "noclient", OIDC: &portal.OIDCConfig{Issuer: "https://idp.example.com"}},
		portal.Config{Name: "noissuer", OIDC: &portal.OIDCConfig{ClientID: "c"}},
		portal.Config{Name: "blank", OIDC: &portal.OIDCConfig{Issuer: " ", ClientID: " "}},
	)
	calls := 0
	set := NewSchemeSet(SchemeSetOptions{
		Registry: registry,
		Tickets:  authmocks.NewMemoryTicketStore(),
		Config: SchemeSetConfig{
			Cookies: testCookieCodec(),
			Providers: func(portal.Config) (ports.AuthProvider, error) {
				calls++
				return authmocks.NewMockAuthProvider(), nil
			},
			Logger: slog.New(slog.DiscardHandler),
		},
	})

	assert.Zero(t, calls)
	assert.Equal(t, []string{"Cookies", "cookie-blank", "cookie-noclient", "cookie-noissuer"}, set.Names())
}

func TestNewSchemeSet_ProviderFailureIsIsolated(t *testing.T) {
	set := NewSchemeSet(SchemeSetOptions{
		Registry: testRegistry(),
		Tickets:  authmocks.NewMemoryTicketStore(),
		Config: SchemeSetConfig{
			Cookies: testCookieCodec(),
			Providers: func(p portal.Config) (ports.AuthProvider, error) {
				if p.Name == "portal1" {
					return nil, apperrors.Configurationf("broken")
				}
				return authmocks.NewMockAuthProvider(), nil
			},
			Logger: slog.New(slog.DiscardHandler),
		},
	})

	_, err := set.OIDC("portal1")
	assert.True(t, apperrors.IsUnregisteredScheme(err))
	_, err = set.OIDC("portal2")
	assert.NoError(t, err)
	assert.Contains(t, set.Skipped(), "portal1")
}

func TestNewSchemeSet_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewSchemeSet(SchemeSetOptions{Tickets: authmocks.NewMemoryTicketStore()}) })
	assert.Panics(t, func() { NewSchemeSet(SchemeSetOptions{Registry: testRegistry()}) })
	assert.Panics(t, func() {
		NewSchemeSet(SchemeSetOptions{Registry: testRegistry(), Tickets: authmocks.NewMemoryTicketStore()})
	})
}

func TestOIDCScheme_RedirectURIHonoursBasePath(t *testing.T) {
	providers := map[string]*authmocks.MockAuthProvider{}
	set := NewSchemeSet(SchemeSetOptions{
		Registry: testRegistry(),
		Tickets:  authmocks.NewMemoryTicketStore(),
		Config: SchemeSetConfig{
			Cookies: testCookieCodec(),
			Providers: func(p portal.Config) (ports.AuthProvider, error) {
				m := authmocks.NewMockAuthProvider()
				providers[p.Name] = m
				return m, nil
			},
			BasePath: "/gw/",
			Logger:   slog.New(slog.DiscardHandler),
		},
	})
	scheme, err := set.OIDC("portal1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "forwarded proto and host",
			headers: map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "app.example.com"},
			want:    "https://app.example.com/gw/callback/portal1",
		},
		{
			name:    "forwarded prefix wins over base path",
			headers: map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "app.example.com", "X-Forwarded-Prefix": "/edge/"},
			want:    "https://app.example.com/edge/callback/portal1",
		},
		{
			name:    "rfc 7239",
			headers: map[string]string{"Forwarded": `for=10.0.0.1;proto=https;host="gw.example.com:8443"`},
			want:    "https://gw.example.com:8443/gw/callback/portal1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/signin/portal1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			require.NoError(t, scheme.Challenge(rec, req, "/"))
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.want, providers["portal1"].LastBegin.RedirectURI)

			var corr *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "fwda-oidc-portal1" {
					corr = c
				}
			}
			require.NotNil(t, corr)
			assert.Equal(t, 600, corr.MaxAge)
			assert.True(t, corr.HttpOnly)
			assert.True(t, corr.Secure)
		})
	}
}

func TestOIDCScheme_CustomHooks(t *testing.T) {
	var failures []error
	set := NewSchemeSet(SchemeSetOptions{
		Registry: testRegistry(),
		Tickets:  authmocks.NewMemoryTicketStore(),
		Config: SchemeSetConfig{
			Cookies: testCookieCodec(),
			Providers: func(portal.Config) (ports.AuthProvider, error) {
				return authmocks.NewMockAuthProvider(), nil
			},
			Hooks: Hooks{
				OnRemoteFailure: func(c RemoteFailureContext) ResponseOverride {
					failures = append(failures, c.Err)
					return ResponseOverride{StatusCode: http.StatusForbidden, Handled: true}
				},
			},
			Logger: slog.New(slog.DiscardHandler),
		},
	})
	scheme, err := set.OIDC("portal1")
	require.NoError(t, err)

	res, err := scheme.HandleCallback(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback/portal1?error=login_required", nil))
	require.NoError(t, err)
	require.NotNil(t, res.Override)
	assert.Equal(t, http.StatusForbidden, res.Override.StatusCode)
	require.Len(t, failures, 1)
	assert.True(t, apperrors.IsRemoteProvider(failures[0]))
}
