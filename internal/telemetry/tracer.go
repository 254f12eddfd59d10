// Package telemetry wraps each translated request in an OpenTelemetry
// span when enabled, falling back to a no-op tracer otherwise. Spans
// never record request bodies; those may carry client credentials or
// message content.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies spans emitted by this service.
const TracerName = "messages-gateway"

// GetTracer returns the global tracer when enabled is true, otherwise a
// no-op tracer that makes every span a zero-cost stub.
func GetTracer(enabled bool) trace.Tracer {
	if !enabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	return otel.Tracer(TracerName)
}

// StartRequestSpan opens a span for one /v1/messages request, tagged with
// the resolved model (never the request body or credential).
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "messages.translate", trace.WithAttributes(
		attribute.String("gen_ai.request.model", model),
	))
}

// RecordError records err on span and marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
