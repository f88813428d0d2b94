package handlers

import (
	"net/http"

	"github.com/nomis52/journeyid/params"
)

// SanitizeRequest is the body of POST /api/tokens/sanitize.
type SanitizeRequest struct {
	Values []string `json:"values"`
}

// SanitizedToken pairs an input with its parameter token.
type SanitizedToken struct {
	Value string `json:"value"`
	Token string `json:"token"`
}

// SanitizeHandler previews the tokens tracking parameters will carry.
type SanitizeHandler struct{}

// NewSanitizeHandler creates a new SanitizeHandler.
func NewSanitizeHandler() *SanitizeHandler {
	return &SanitizeHandler{}
}

// ServeHTTP implements http.Handler.
func (h *SanitizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SanitizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens := make([]SanitizedToken, len(req.Values))
	for i, v := range req.Values {
		tokens[i] = SanitizedToken{Value: v, Token: params.SanitizeToken(v)}
	}
	writeJSON(w, http.StatusOK, tokens)
}
