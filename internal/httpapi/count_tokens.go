package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/internal/tokencount"
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
)

type countTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

// handleCountTokens implements POST /v1/messages/count_tokens: the same
// request shape as /v1/messages, answered with a heuristic estimate and
// no upstream call.
func (h *handlers) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req anthropicapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			writePreStreamError(w, errs.BodyTooLarge())
			return
		}
		writePreStreamError(w, errs.InvalidRequest("request body is not valid JSON"))
		return
	}

	estimate := tokencount.Estimate(req.System, req.Messages)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(countTokensResponse{InputTokens: estimate})
}
