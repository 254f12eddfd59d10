package sse

import (
	"fmt"
	"io"
	"net/http"
)

// Writer serializes Event-shaped frames to an http.ResponseWriter,
// flushing after every event so clients see each Anthropic event as it
// is produced rather than buffered until the handler returns.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. flusher may be nil when w does not support flushing
// (e.g. in tests writing to a bytes.Buffer).
func NewWriter(w io.Writer, flusher http.Flusher) *Writer {
	return &Writer{w: w, flusher: flusher}
}

// WriteNamed writes a named SSE event ("event: <name>\ndata: <json>\n\n"),
// the frame shape every Anthropic stream event uses.
func (w *Writer) WriteNamed(name string, jsonPayload []byte) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", name, jsonPayload); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
