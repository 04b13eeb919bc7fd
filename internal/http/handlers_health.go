package httpx

import (
	"net/http"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "fwda"

// PortalLister is the slice of the registry the status endpoints need.
type PortalLister interface {
	Names() []string
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string   `json:"status"`
	Portals     int      `json:"portals"`
	PortalNames []string `json:"portalNames"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// StatusHandlers serves the liveness and identity endpoints.
type StatusHandlers struct {
	Portals PortalLister
	Version string
}

// Health reports the loaded portals.
func (h *StatusHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	if h.Portals != nil {
		names = append(names, h.Portals.Names()...)
	}
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Portals: len(names), PortalNames: names})
}

// Root identifies the service.
func (h *StatusHandlers) Root(w http.ResponseWriter, _ *http.Request) {
	version := h.Version
	if version == "" {
		version = "unknown"
	}
	WriteJSON(w, http.StatusOK, RootResponse{Service: ServiceName, Version: version, Status: "running"})
}
