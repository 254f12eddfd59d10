// Package errs defines the translator's error taxonomy: a closed set of
// machine-readable kinds, each carrying the HTTP status (for pre-stream
// failures) or a flag marking it as stream-synthesized.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error tag surfaced to clients and logs.
type Kind string

const (
	KindInvalidCredential       Kind = "invalid_credential"
	KindUnsupportedCredential   Kind = "unsupported_credential"
	KindEmptyMessages           Kind = "empty_messages"
	KindTooManyMessages         Kind = "too_many_messages"
	KindContentTooLarge         Kind = "content_too_large"
	KindInvalidMaxTokens        Kind = "invalid_max_tokens"
	KindInvalidImage            Kind = "invalid_image"
	KindUnknownModel            Kind = "unknown_model"
	KindBackendCircuitOpen      Kind = "backend_unavailable_circuit_open"
	KindUpstreamConnect         Kind = "upstream_connect"
	KindUpstreamTimeout         Kind = "upstream_timeout"
	KindUpstreamStatus          Kind = "upstream_status"
	KindUpstreamContextExceeded Kind = "upstream_context_exceeded"
	KindUpstreamRateLimited     Kind = "upstream_rate_limited"
	KindUpstreamQuotaExhausted  Kind = "upstream_quota_exhausted"
	KindInternalParseError      Kind = "internal_parse_error"
	KindBodyTooLarge            Kind = "body_too_large"
	// KindInvalidRequest covers bodies that fail JSON decoding before
	// shape validation can run.
	KindInvalidRequest Kind = "invalid_request"
)

// Error is the translator's single error type. Pre-stream errors carry a
// meaningful HTTPStatus; mid-stream errors (Synthesized == true) are
// recovered into an SSE text block instead of an HTTP status.
type Error struct {
	Kind        Kind
	Message     string
	HTTPStatus  int
	Synthesized bool
	Cause       error

	// UpstreamStatusCode is set for KindUpstreamStatus.
	UpstreamStatusCode int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// As reports whether err (or something it wraps) is an *Error, writing it
// into target when so.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

func newPreStream(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Message: message, HTTPStatus: status}
}

func newSynthesized(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, HTTPStatus: http.StatusOK, Synthesized: true, Cause: cause}
}

// Pre-stream constructors.

func InvalidCredential(message string) *Error {
	return newPreStream(KindInvalidCredential, http.StatusUnauthorized, message)
}

func UnsupportedCredential(message string) *Error {
	return newPreStream(KindUnsupportedCredential, http.StatusUnauthorized, message)
}

func EmptyMessages() *Error {
	return newPreStream(KindEmptyMessages, http.StatusBadRequest, "messages must not be empty")
}

func TooManyMessages(count, limit int) *Error {
	return newPreStream(KindTooManyMessages, http.StatusBadRequest,
		fmt.Sprintf("request has %d messages, exceeding the limit of %d", count, limit))
}

func ContentTooLarge(bytes, limit int) *Error {
	return newPreStream(KindContentTooLarge, http.StatusBadRequest,
		fmt.Sprintf("aggregate content is %d bytes, exceeding the limit of %d", bytes, limit))
}

func InvalidMaxTokens(message string) *Error {
	return newPreStream(KindInvalidMaxTokens, http.StatusBadRequest, message)
}

func InvalidImage(message string) *Error {
	return newPreStream(KindInvalidImage, http.StatusBadRequest, message)
}

func BackendCircuitOpen() *Error {
	return newPreStream(KindBackendCircuitOpen, http.StatusServiceUnavailable,
		"backend is unavailable: circuit breaker is open")
}

func BodyTooLarge() *Error {
	return newPreStream(KindBodyTooLarge, http.StatusRequestEntityTooLarge, "request body exceeds the 10 MiB limit")
}

func InvalidRequest(message string) *Error {
	return newPreStream(KindInvalidRequest, http.StatusBadRequest, message)
}

// Synthesized (mid-stream / HTTP 200) constructors.

func UnknownModel(message string) *Error {
	return newSynthesized(KindUnknownModel, message, nil)
}

func UpstreamConnect(cause error) *Error {
	return newSynthesized(KindUpstreamConnect, "could not connect to the backend", cause)
}

func UpstreamTimeout(cause error) *Error {
	return newSynthesized(KindUpstreamTimeout, "the backend timed out mid-response", cause)
}

func UpstreamStatus(statusCode int, bodyPreview string) *Error {
	e := newSynthesized(KindUpstreamStatus, fmt.Sprintf("backend returned HTTP %d: %s", statusCode, bodyPreview), nil)
	e.UpstreamStatusCode = statusCode
	return e
}

func UpstreamContextExceeded(message string) *Error {
	return newSynthesized(KindUpstreamContextExceeded, message, nil)
}

func UpstreamRateLimited(message string) *Error {
	return newSynthesized(KindUpstreamRateLimited, message, nil)
}

func UpstreamQuotaExhausted(message string) *Error {
	return newSynthesized(KindUpstreamQuotaExhausted, message, nil)
}

func InternalParseError(cause error) *Error {
	return newSynthesized(KindInternalParseError, "failed to parse backend response", cause)
}

// CountsTowardBreaker reports whether this upstream failure kind should
// increment the circuit breaker's consecutive-failure counter: connect
// failures and mid-stream timeouts always count; a non-2xx status only
// counts when it is a 5xx.
func (e *Error) CountsTowardBreaker() bool {
	switch e.Kind {
	case KindUpstreamConnect, KindUpstreamTimeout:
		return true
	case KindUpstreamStatus:
		return e.UpstreamStatusCode >= 500
	default:
		return false
	}
}
