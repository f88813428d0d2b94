package handlers

import (
	"net/http"

	"github.com/nomis52/journeyid/server/cron"
	"github.com/nomis52/journeyid/server/runner"
	"github.com/nomis52/journeyid/server/types"
)

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server       types.ServerProperties `json:"server"`
	Running      []runner.InFlight      `json:"running"`
	Jobs         []cron.ScheduledJob    `json:"jobs"`
	LastSnapshot *cron.SnapshotRun      `json:"last_snapshot,omitempty"`
}

// APIStatusProvider aggregates all the providers needed for the status endpoint.
type APIStatusProvider interface {
	Properties() types.ServerProperties
	Running() []runner.InFlight
	Jobs() []cron.ScheduledJob
	LastSnapshot() *cron.SnapshotRun
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider APIStatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider APIStatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := APIStatusResponse{
		Server:       h.provider.Properties(),
		Running:      h.provider.Running(),
		Jobs:         h.provider.Jobs(),
		LastSnapshot: h.provider.LastSnapshot(),
	}
	if resp.Running == nil {
		resp.Running = []runner.InFlight{}
	}
	if resp.Jobs == nil {
		resp.Jobs = []cron.ScheduledJob{}
	}
	writeJSON(w, http.StatusOK, resp)
}
