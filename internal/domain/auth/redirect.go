package auth

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ForwardedOrigin is the externally visible scheme, host and path prefix of a
// request as reported by the reverse proxy chain.
type ForwardedOrigin struct {
	Proto  string
	Host   string
	Prefix string
}

// ResolveOrigin applies the forwarded-header precedence: X-Forwarded-* first,
// then the RFC 7239 Forwarded header, then the request itself. Only the first
// element of a comma-separated header is used. basePath applies when no
// X-Forwarded-Prefix is present.
func ResolveOrigin(r *http.Request, basePath string) ForwardedOrigin {
	fwd := parseForwarded(r.Header.Get("Forwarded"))

	proto := firstValue(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = fwd["proto"]
	}
	if proto == "" {
		proto = requestScheme(r)
	}

	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = fwd["host"]
	}
	if host == "" {
		host = r.Host
	}

	prefix := firstValue(r.Header.Get("X-Forwarded-Prefix"))
	if prefix == "" {
		prefix = basePath
	}

	return ForwardedOrigin{
		Proto:  strings.ToLower(proto),
		Host:   stripDefaultPort(host, strings.ToLower(proto)),
		Prefix: normalizePrefix(prefix),
	}
}

// SynthesizeRedirectURI builds the provider callback URI as seen by the
// browser: {proto}://{host}[:port]{prefix}{callbackPath}. Default ports are
// omitted and the prefix never doubles the separator.
func SynthesizeRedirectURI(r *http.Request, basePath, callbackPath string) string {
	o := ResolveOrigin(r, basePath)
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}
	return o.Proto + "://" + o.Host + o.Prefix + callbackPath
}

// ReconstructReturnURL rebuilds the URL the browser originally asked the proxy
// for, from X-Forwarded-Proto/Host/Uri with request fallbacks.
func ReconstructReturnURL(r *http.Request) string {
	proto := firstValue(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = requestScheme(r)
	}
	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	uri := r.Header.Get("X-Forwarded-Uri")
	if uri == "" {
		uri = r.URL.Path
	}
	return proto + "://" + host + uri
}

// DefaultReturnURL is where a completed login lands without a return URL.
func DefaultReturnURL(hostname string) string {
	return "https://" + hostname + "/"
}

// IsAllowedReturnURL reports whether raw may be used as a post-login redirect
// target. Relative paths are allowed; absolute URLs must point at one of the
// allowed hosts or at a subdomain of cookieDomain.
func IsAllowedReturnURL(raw, cookieDomain string, allowedHosts ...string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		// "/x" is fine; "\\evil" and "//evil" style tricks are not.
		return strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range allowedHosts {
		if h = strings.ToLower(hostOnly(h)); h != "" && h == host {
			return true
		}
	}
	if d := strings.TrimPrefix(strings.ToLower(cookieDomain), "."); d != "" {
		return host == d || strings.HasSuffix(host, "."+d)
	}
	return false
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// parseForwarded returns the parameters of the first element of an RFC 7239
// Forwarded header, with quotes removed and keys lower-cased.
func parseForwarded(v string) map[string]string {
	out := map[string]string{}
	first := firstValue(v)
	if first == "" {
		return out
	}
	for _, pair := range strings.Split(first, ";") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(val), `"`)
	}
	return out
}

func stripDefaultPort(host, proto string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (proto == "https" && port == "443") || (proto == "http" && port == "80") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
