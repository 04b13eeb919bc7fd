package auth

const (
	// DefaultCookieScheme is the process-wide fallback cookie scheme.
	DefaultCookieScheme = "Cookies"
	// DefaultCookieName is the cookie written by DefaultCookieScheme.
	DefaultCookieName = "fwda"
)

// CookieScheme names the cookie scheme of a portal.
func CookieScheme(portal string) string { return "cookie-" + portal }

// OIDCScheme names the OIDC scheme of a portal.
func OIDCScheme(portal string) string { return "oidc-" + portal }

// CookieName is the session cookie of a portal.
func CookieName(portal string) string { return "fwda-" + portal }

// CorrelationCookieName carries challenge state between sign-in and callback.
func CorrelationCookieName(portal string) string { return "fwda-oidc-" + portal }

// CallbackPath is where the provider returns the browser for a portal.
func CallbackPath(portal string) string { return "/callback/" + portal }
