package handlers

import (
	"log/slog"
	"net/http"
	"time"
)

// ReloadResponse is returned after a successful reload.
type ReloadResponse struct {
	ReloadedAt time.Time `json:"reloaded_at"`
}

// ReloadHandler rebuilds the activation pipeline from the config on disk.
// Activations already running finish on the pipeline they started with.
type ReloadHandler struct {
	logger   *slog.Logger
	reloader Reloader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(logger *slog.Logger, reloader Reloader) *ReloadHandler {
	return &ReloadHandler{
		logger:   logger,
		reloader: reloader,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reloading activation config", "remote_addr", r.RemoteAddr)

	if err := h.reloader.Reload(r.Context()); err != nil {
		h.logger.Error("failed to reload activation config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload configuration: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ReloadResponse{ReloadedAt: time.Now().UTC()})
}
