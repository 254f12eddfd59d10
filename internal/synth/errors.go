package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/internal/modelcache"
	"github.com/openbridge/messages-gateway/internal/sse"
)

// RenderModelNotFound bypasses the upstream call entirely and emits a
// valid Anthropic SSE stream whose text block renders the available
// model catalog plus the /model switch hint.
func RenderModelNotFound(w *sse.Writer, requestedModel string, snap modelcache.Snapshot) error {
	s := New(w, requestedModel)
	if err := s.Start(); err != nil {
		return err
	}
	if err := s.AppendErrorText(formatModelCatalog(requestedModel, snap)); err != nil {
		return err
	}
	s.SetStopReason("end_turn")
	return s.Close()
}

// FormatErrorMessage renders e as the human-readable, categorized text
// shown in the synthetic text block, with actionable hints per kind.
func FormatErrorMessage(e *errs.Error) string {
	switch e.Kind {
	case errs.KindUpstreamContextExceeded:
		return fmt.Sprintf("This request exceeds the backend's context window. %s\n\nTry shortening the conversation or reducing max_tokens.", e.Message)
	case errs.KindUpstreamRateLimited:
		return fmt.Sprintf("The backend is rate-limiting requests. %s\n\nPlease retry after a short delay.", e.Message)
	case errs.KindUpstreamQuotaExhausted:
		return fmt.Sprintf("The backend account has exhausted its quota. %s\n\nCheck your billing/quota settings with the backend provider.", e.Message)
	case errs.KindUpstreamTimeout:
		return fmt.Sprintf("The backend timed out mid-response. %s\n\nThis can happen on long generations; retrying often succeeds.", e.Message)
	case errs.KindUpstreamConnect:
		return fmt.Sprintf("Could not connect to the backend. %s\n\nCheck that BACKEND_URL is reachable.", e.Message)
	case errs.KindUpstreamStatus:
		return fmt.Sprintf("The backend returned an error. %s", e.Message)
	case errs.KindBackendCircuitOpen:
		return "The backend is currently marked unavailable after repeated failures. The circuit breaker will allow a probe request shortly; please retry in a few seconds."
	case errs.KindInternalParseError:
		return fmt.Sprintf("Failed to parse the backend's response. %s", e.Message)
	default:
		return e.Message
	}
}

// formatModelCatalog renders the catalog text for an unknown model: every
// cached model ID plus the /model switch hint.
func formatModelCatalog(requestedModel string, snap modelcache.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model \"%s\" was not found in the backend's catalog.\n\n", requestedModel)

	if len(snap.Models) == 0 {
		b.WriteString("No models are currently cached from the backend.")
		b.WriteString("\n\nUse /model <name> to pick a different model once the catalog is available.")
		return b.String()
	}

	b.WriteString("Available models:\n")
	ids := make([]string, len(snap.Models))
	for i, m := range snap.Models {
		ids[i] = fmt.Sprintf("  - %s (%s)", m.ID, m.Category)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(id)
		b.WriteString("\n")
	}
	b.WriteString("\nUse /model <name> to switch to one of the models listed above.")
	return b.String()
}
