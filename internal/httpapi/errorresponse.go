package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/openbridge/messages-gateway/internal/errs"
)

// anthropicErrorBody mirrors the Anthropic API's plain-JSON error shape,
// used for the pre-stream failure kinds that never commit to an SSE
// stream: body-too-large (413), missing/unsupported credential (401),
// validation errors (400), circuit open (503).
type anthropicErrorBody struct {
	Type  string      `json:"type"`
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// writePreStreamError renders e as a plain JSON error response with its
// own HTTPStatus, never as an SSE stream.
func writePreStreamError(w http.ResponseWriter, e *errs.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(anthropicErrorBody{
		Type: "error",
		Error: errorDetail{
			Type:    string(e.Kind),
			Message: e.Message,
		},
	})
}
