package httpx

import (
	"bytes"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

//nolint:gochecknoglobals // shared, immutable encoder configuration
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	writeJSON(w, jsonResponse{Code: code, ContentType: "application/json", Body: v})
}

type jsonResponse struct {
	Code        int
	ContentType string
	Body        any
}

func writeJSON(w http.ResponseWriter, res jsonResponse) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(res.Body); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.Code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}
