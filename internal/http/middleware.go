package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds an inbound request id before it is trusted.
const maxRequestIDLen = 128

// Chain applies middlewares so the first one listed is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestID returns a middleware that propagates the inbound X-Request-Id or
// assigns a fresh one, echoes it on the response and stores it in the context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(SetRequestIDInContext(r.Context(), id)))
		})
	}
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			id, _ := RequestIDFromContext(r.Context())
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", id),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// PathBase strips base from request paths that carry it. Requests without the
// prefix are served unchanged, so the gateway answers on both forms.
func PathBase(base string) func(http.Handler) http.Handler {
	base = "/" + strings.Trim(strings.TrimSpace(base), "/")
	return func(next http.Handler) http.Handler {
		if base == "/" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if p != base && !strings.HasPrefix(p, base+"/") {
				next.ServeHTTP(w, r)
				return
			}
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimPrefix(p, base)
			if r2.URL.Path == "" {
				r2.URL.Path = "/"
			}
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
		})
	}
}

// ForceUnauthorized turns any 3xx written for /auth or /auth/* into a bare
// 401. This covers the 301 ServeMux sends for non-canonical paths.
func ForceUnauthorized() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAuthCheckPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&unauthorizedWriter{ResponseWriter: w}, r)
		})
	}
}

func isAuthCheckPath(p string) bool {
	return p == "/auth" || strings.HasPrefix(p, "/auth/")
}

// unauthorizedWriter rewrites redirect statuses and swallows their bodies.
type unauthorizedWriter struct {
	http.ResponseWriter
	wroteHeader bool
	forced      bool
}

func (w *unauthorizedWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if code >= http.StatusMultipleChoices && code < http.StatusBadRequest {
		w.forced = true
		h := w.Header()
		h.Del("Location")
		h.Del("Content-Type")
		h.Set("Content-Length", "0")
		w.ResponseWriter.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *unauthorizedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.forced {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *unauthorizedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
