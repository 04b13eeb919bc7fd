package httpx

import (
	"errors"
	"net/http"

	apperrors "github.com/oformaniuk/fwda/internal/errors"
)

// ProblemContentType is the media type of RFC 9457 problem details.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 9457 problem details body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// WriteProblem writes a problem details response. Detail must be safe to show
// to a browser.
func WriteProblem(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, jsonResponse{
		Code:        status,
		ContentType: ProblemContentType,
		Body: Problem{
			Type:   "about:blank",
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
		},
	})
}

// problemFor maps a service error to a status and a browser-safe detail.
// Only configuration-level messages are echoed; everything else gets a
// generic detail so internals never reach the response.
func problemFor(err error) (int, string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable, "The session store is temporarily unavailable. Try again shortly."
	case apperrors.ErrCodeConfiguration, apperrors.ErrCodeUnregisteredScheme:
		return http.StatusInternalServerError, appMessage(err)
	case apperrors.ErrCodeTimeout, apperrors.ErrCodeCanceled:
		return http.StatusServiceUnavailable, "The request could not be completed in time."
	default:
		return http.StatusInternalServerError, "An unexpected error occurred."
	}
}

// appMessage returns the outermost AppError message without its cause chain.
func appMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
