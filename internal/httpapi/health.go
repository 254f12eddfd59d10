package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/openbridge/messages-gateway/internal/breaker"
)

type healthResponse struct {
	Status         string             `json:"status"`
	BackendURL     string             `json:"backend_url"`
	ModelsCached   int                `json:"models_cached"`
	CircuitBreaker circuitBreakerView `json:"circuit_breaker"`
}

type circuitBreakerView struct {
	IsOpen              bool `json:"is_open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}

// handleHealth implements GET /health. Status is "unhealthy" when the
// model cache has never been populated or the breaker is open.
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Cache.Snapshot()
	breakerState := h.deps.Breaker.Snapshot()
	isOpen := breakerState == breaker.StateOpen

	status := "healthy"
	if !h.deps.Cache.Populated() || isOpen {
		status = "unhealthy"
	}

	resp := healthResponse{
		Status:       status,
		BackendURL:   h.deps.BackendURL,
		ModelsCached: len(snap.Models),
		CircuitBreaker: circuitBreakerView{
			IsOpen:              isOpen,
			ConsecutiveFailures: h.deps.Breaker.Failures(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
