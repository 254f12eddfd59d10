package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/openbridge/messages-gateway/internal/auth"
	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/internal/modelcache"
	"github.com/openbridge/messages-gateway/internal/sse"
	"github.com/openbridge/messages-gateway/internal/synth"
	"github.com/openbridge/messages-gateway/internal/telemetry"
	"github.com/openbridge/messages-gateway/internal/translate"
	"github.com/openbridge/messages-gateway/internal/upstream"
	"github.com/openbridge/messages-gateway/internal/validate"
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
)

// handleMessages implements POST /v1/messages: the bidirectional
// translation pipeline end to end.
func (h *handlers) handleMessages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	credential, authErr := auth.Resolve(r)
	if authErr != nil {
		writePreStreamError(w, authErr)
		return
	}

	var req anthropicapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			writePreStreamError(w, errs.BodyTooLarge())
			return
		}
		writePreStreamError(w, errs.InvalidRequest("request body is not valid JSON"))
		return
	}

	if valErr := validate.Request(&req, h.deps.Logger); valErr != nil {
		writePreStreamError(w, valErr)
		return
	}

	snap := h.deps.Cache.Snapshot()
	resolvedModel, resolveErr := modelcache.Resolve(snap, req.Model)
	if resolveErr != nil {
		var nf *modelcache.NotFoundError
		if errors.As(resolveErr, &nf) {
			prepareSSEHeaders(w)
			writer := sse.NewWriter(w, asFlusher(w))
			if err := synth.RenderModelNotFound(writer, req.Model, nf.Snapshot); err != nil {
				h.deps.Logger.Error("failed writing model-not-found stream", "error", err)
			}
			return
		}
		writePreStreamError(w, errs.InternalParseError(resolveErr))
		return
	}

	if !h.deps.Breaker.Allow() {
		writePreStreamError(w, errs.BackendCircuitOpen())
		return
	}

	ctx := r.Context()
	if h.deps.Tracer != nil {
		var span trace.Span
		ctx, span = telemetry.StartRequestSpan(ctx, h.deps.Tracer, resolvedModel)
		defer span.End()
	}

	openaiReq := translate.ToOpenAIRequest(&req, resolvedModel)

	prepareSSEHeaders(w)
	writer := sse.NewWriter(w, asFlusher(w))
	synthesizer := synth.New(writer, resolvedModel)
	if err := synthesizer.Start(); err != nil {
		h.deps.Logger.Error("failed writing message_start", "error", err)
		return
	}

	stream, streamErr := h.deps.Upstream.ChatCompletionsStream(ctx, credential, openaiReq)
	if streamErr != nil {
		h.recordBreakerOutcome(streamErr)
		h.finishWithError(synthesizer, streamErr)
		return
	}
	defer stream.Body.Close()

	if pumpErr := h.pumpStream(synthesizer, stream.Body); pumpErr != nil {
		h.deps.Breaker.RecordFailure()
		var e *errs.Error
		if upstream.ReadTimeoutError(pumpErr) {
			e = errs.UpstreamTimeout(pumpErr)
		} else {
			e = errs.UpstreamConnect(pumpErr)
		}
		h.finishWithError(synthesizer, e)
		return
	}

	h.deps.Breaker.RecordSuccess()
	if err := synthesizer.Close(); err != nil {
		h.deps.Logger.Error("failed writing closure", "error", err)
	}
}

// pumpStream reads raw bytes from body, feeds them through the SSE byte
// parser, and drives the synthesizer with each resulting event, until
// the [DONE] sentinel or EOF.
func (h *handlers) pumpStream(synthesizer *synth.Synthesizer, body io.Reader) error {
	parser := sse.New(h.deps.Logger)
	buf := make([]byte, 32*1024)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				done, handleErr := synthesizer.HandleUpstreamEvent(ev)
				if handleErr != nil {
					h.deps.Logger.Error("synth: failed to handle upstream event", "error", handleErr)
					continue
				}
				if done {
					return nil
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, ev := range parser.Flush() {
					if done, _ := synthesizer.HandleUpstreamEvent(ev); done {
						return nil
					}
				}
				return nil
			}
			return readErr
		}
	}
}

// recordBreakerOutcome feeds a pre-stream upstream failure to the circuit
// breaker only when its kind qualifies.
func (h *handlers) recordBreakerOutcome(e *errs.Error) {
	if e.CountsTowardBreaker() {
		h.deps.Breaker.RecordFailure()
	}
}

// finishWithError recovers a mid-stream failure into a synthetic text
// block followed by proper closure, rather than tearing the connection.
func (h *handlers) finishWithError(synthesizer *synth.Synthesizer, e *errs.Error) {
	if err := synthesizer.AppendErrorText(synth.FormatErrorMessage(e)); err != nil {
		h.deps.Logger.Error("failed writing error text block", "error", err)
		return
	}
	synthesizer.SetStopReason(anthropicapi.StopEndTurn)
	if err := synthesizer.Close(); err != nil {
		h.deps.Logger.Error("failed writing closure after error", "error", err)
	}
}

func prepareSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func asFlusher(w http.ResponseWriter) http.Flusher {
	f, _ := w.(http.Flusher)
	return f
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
