package handlers

import "net/http"

// HealthHandler reports "ok" once an activation pipeline is loaded and 503
// before that.
type HealthHandler struct {
	configProvider ConfigProvider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(provider ConfigProvider) *HealthHandler {
	return &HealthHandler{configProvider: provider}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.configProvider.Config() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no pipeline loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
