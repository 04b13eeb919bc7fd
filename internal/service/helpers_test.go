package service

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/require"

	authmocks "github.com/oformaniuk/fwda/internal/mocks/auth"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/ports"
	"github.com/oformaniuk/fwda/internal/testutil"
)

func testCookieCodec() *securecookie.SecureCookie {
	sc := securecookie.New(bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return sc
}

func testRegistry() *portal.Registry {
	return portal.NewRegistry(portal.Settings{SessionTimeout: time.Hour},
		portal.Config{
			Name:         "portal1",
			Display:      "Portal One",
			Hostname:     "app.example.com",
			CookieDomain: ".example.com",
			OIDC: &portal.OIDCConfig{
				Issuer:     "https://idp.example.com/realms/main",
				ClientID:   "portal1",
				Scopes:     []string{"openid", "profile"},
				RolesClaim: "roles",
			},
		},
		portal.Config{
			Name:         "portal2",
			Hostname:     "two.example.com",
			CookieDomain: ".example.com",
			OIDC: &portal.OIDCConfig{
				Issuer:     "https://idp.example.com/realms/main",
				ClientID:   "portal2",
				RolesClaim: "roles",
			},
		},
		portal.Config{Name: "static", Hostname: "static.example.com"},
	)
}

// testClock is a settable clock shared by every scheme of a fixture.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	registry  *portal.Registry
	tickets   *authmocks.MemoryTicketStore
	providers map[string]*authmocks.MockAuthProvider
	schemes   *SchemeSet
	svc       *AuthService
	clock     *testClock
	metrics   *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry:  testRegistry(),
		tickets:   authmocks.NewMemoryTicketStore(),
		providers: map[string]*authmocks.MockAuthProvider{},
		clock:     &testClock{now: testutil.TestTime()},
		metrics:   &recordingMetrics{},
	}
	f.schemes = NewSchemeSet(SchemeSetOptions{
		Registry: f.registry,
		Tickets:  f.tickets,
		Config: SchemeSetConfig{
			Cookies: testCookieCodec(),
			Providers: func(p portal.Config) (ports.AuthProvider, error) {
				m := authmocks.NewMockAuthProvider()
				f.providers[p.Name] = m
				return m, nil
			},
			Logger: slog.New(slog.DiscardHandler),
			Now:    f.clock.Now,
		},
	})
	f.svc = NewAuthService(AuthServiceOptions{
		Registry: f.registry,
		Schemes:  f.schemes,
		Config:   AuthServiceConfig{Metrics: f.metrics, Logger: slog.New(slog.DiscardHandler)},
	})
	return f
}

// browser keeps the cookies a response set, the way a user agent would.
type browser struct {
	jar map[string]*http.Cookie
}

func newBrowser() *browser { return &browser{jar: map[string]*http.Cookie{}} }

func (b *browser) absorb(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c
	}
}

func (b *browser) request(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range b.jar {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

func (b *browser) has(name string) bool {
	_, ok := b.jar[name]
	return ok
}

// signInThroughProvider runs a full challenge and callback for portalName
// and returns the callback outcome.
func (f *fixture) signInThroughProvider(t *testing.T, b *browser, portalName, returnURL string) CallbackOutcome {
	t.Helper()
	target := "/signin/" + portalName
	if returnURL != "" {
		target += "?returnUrl=" + url.QueryEscape(returnURL)
	}
	req := b.request(http.MethodGet, target)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "auth.example.com")
	rec := httptest.NewRecorder()
	res, err := f.svc.SignIn(rec, req, portalName)
	require.NoError(t, err)
	require.Empty(t, res.RedirectURL)
	require.Equal(t, http.StatusFound, rec.Code)
	b.absorb(t, rec)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cb := b.request(http.MethodGet, "/callback/"+portalName+"?code=abc&state="+url.QueryEscape(state))
	cbRec := httptest.NewRecorder()
	out, err := f.svc.Callback(cbRec, cb, portalName)
	require.NoError(t, err)
	b.absorb(t, cbRec)
	return out
}
