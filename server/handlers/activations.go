package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/server/history"
	"github.com/nomis52/journeyid/server/runner"
)

// ActivationErrorResponse is returned when an activation fails. Result holds
// the state reached before the failure.
type ActivationErrorResponse struct {
	Error  string             `json:"error"`
	Result *activation.Result `json:"result,omitempty"`
}

// ActivateHandler handles POST /api/activations.
type ActivateHandler struct {
	logger    *slog.Logger
	activator Activator
}

// NewActivateHandler creates a new ActivateHandler.
func NewActivateHandler(logger *slog.Logger, activator Activator) *ActivateHandler {
	return &ActivateHandler{
		logger:    logger,
		activator: activator,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req activation.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.activator.Activate(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("activation failed", "campaign_name", req.CampaignName, "status", status, "error", err)
		}
		writeJSON(w, status, ActivationErrorResponse{Error: err.Error(), Result: res})
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// statusForError maps activation errors to HTTP status codes.
func statusForError(err error) int {
	var vf *activation.ValidationFailure
	switch {
	case errors.Is(err, runner.ErrTooManyActivations):
		return http.StatusTooManyRequests
	case errors.As(err, &vf):
		return http.StatusUnprocessableEntity
	case errors.Is(err, activation.ErrInvalidRequest), errors.Is(err, journey.ErrStructure):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrMintingInvariant):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, activation.ErrExportFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ActivationListHandler handles GET /api/activations.
type ActivationListHandler struct {
	provider HistoryProvider
}

// NewActivationListHandler creates a new ActivationListHandler.
func NewActivationListHandler(provider HistoryProvider) *ActivationListHandler {
	return &ActivationListHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivationListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.History())
}

// ActivationGetHandler handles GET /api/activations/{id}.
type ActivationGetHandler struct {
	provider HistoryProvider
}

// NewActivationGetHandler creates a new ActivationGetHandler.
func NewActivationGetHandler(provider HistoryProvider) *ActivationGetHandler {
	return &ActivationGetHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivationGetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing activation id")
		return
	}

	rec, err := h.provider.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
