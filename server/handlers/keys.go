package handlers

import (
	"net/http"

	"github.com/nomis52/journeyid/mint"
)

// KeyValidateRequest is the body of POST /api/keys/validate.
type KeyValidateRequest struct {
	Key string `json:"key"`
}

// KeyValidateResponse reports whether a composite key is well formed.
type KeyValidateResponse struct {
	Key   string    `json:"key"`
	Valid bool      `json:"valid"`
	Parts *mint.Key `json:"parts,omitempty"`
	Error string    `json:"error,omitempty"`
}

// KeyValidateHandler parses composite keys for the journey editor.
type KeyValidateHandler struct{}

// NewKeyValidateHandler creates a new KeyValidateHandler.
func NewKeyValidateHandler() *KeyValidateHandler {
	return &KeyValidateHandler{}
}

// ServeHTTP implements http.Handler. A malformed key is not an HTTP error;
// the response reports it with Valid false.
func (h *KeyValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req KeyValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	resp := KeyValidateResponse{Key: req.Key}
	parts, err := mint.ParseKey(req.Key)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Valid = true
		resp.Parts = &parts
	}
	writeJSON(w, http.StatusOK, resp)
}
