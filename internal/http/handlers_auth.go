package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/service"
)

// Identity headers returned to the reverse proxy on a successful check.
const (
	HeaderAuthUser    = "X-Auth-User"
	HeaderAuthEmail   = "X-Auth-Email"
	HeaderAuthSubject = "X-Auth-Subject"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Check(w http.ResponseWriter, r *http.Request, portal string) (service.CheckResult, error)
	SignIn(w http.ResponseWriter, r *http.Request, portal string) (service.SignInResult, error)
	Callback(w http.ResponseWriter, r *http.Request, portal string) (service.CallbackOutcome, error)
	SignOut(w http.ResponseWriter, r *http.Request, portal string) error
}

// AuthHandlers provides the per-portal forward-auth endpoints.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Check handles GET/HEAD /auth/{portal}. It answers 200 with identity headers
// or a bare 401, and never redirects.
func (h *AuthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("portal")
	res, err := h.Svc.Check(w, r, name)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !res.KnownPortal || res.Principal == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	user := res.Principal.DisplayName
	if user == "" {
		user = "unknown"
	}
	w.Header().Set(HeaderAuthUser, user)
	w.Header().Set(HeaderAuthEmail, "")
	w.Header().Set(HeaderAuthSubject, res.Principal.Subject)
	w.WriteHeader(http.StatusOK)
}

// SignIn handles GET /signin/{portal} and GET /portals/{portal}/signin.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("portal")
	res, err := h.Svc.SignIn(w, r, name)
	switch {
	case apperrors.IsNotFound(err):
		portalNotFound(w, name)
	case err != nil:
		h.writeFailure(w, r, err)
	case res.RedirectURL != "":
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
	}
}

// Callback handles GET /callback/{portal}.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("portal")
	out, err := h.Svc.Callback(w, r, name)
	switch {
	case apperrors.IsNotFound(err):
		h.logger().WarnContext(r.Context(), "callback received for unknown portal", "portal", name)
		portalNotFound(w, name)
	case err != nil:
		h.writeFailure(w, r, err)
	case out.StatusCode != 0:
		w.WriteHeader(out.StatusCode)
	default:
		h.logger().InfoContext(r.Context(), "redirecting after sign-in", "portal", name, "return_url", out.RedirectURL)
		http.Redirect(w, r, out.RedirectURL, http.StatusFound)
	}
}

// SignOut handles GET /signout/{portal}.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("portal")
	err := h.Svc.SignOut(w, r, name)
	switch {
	case apperrors.IsNotFound(err):
		portalNotFound(w, name)
	case err != nil:
		h.writeFailure(w, r, err)
	default:
		WriteJSON(w, http.StatusOK, "Signed out successfully")
	}
}

func (h *AuthHandlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := problemFor(err)
	h.logger().ErrorContext(r.Context(), "auth endpoint failed",
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	WriteProblem(w, status, detail)
}

func portalNotFound(w http.ResponseWriter, name string) {
	WriteJSON(w, http.StatusNotFound, "Portal '"+name+"' not found")
}
