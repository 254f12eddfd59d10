// Package sse is a byte-safe Server-Sent Events parser for the upstream
// OpenAI-compatible stream. Parser buffers raw bytes and only joins and
// decodes data: payloads once a blank-line terminator has been found in
// the byte stream, so a chunk boundary that splits a multi-byte UTF-8
// rune is reassembled before anything touches it as text.
package sse

import (
	"bytes"
	"log/slog"
)

// maxBufferedBytes is the hard cap on unterminated buffered input. Past
// this, the buffer is dropped and logged rather than grown without bound.
const maxBufferedBytes = 1 << 20 // 1 MiB

// Event is one parsed Server-Sent Event.
type Event struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// IsDone reports whether this event carries the upstream's [DONE] sentinel.
func (e Event) IsDone() bool {
	return e.Data == "[DONE]"
}

// Parser accumulates raw bytes fed via Feed and yields complete events as
// soon as a blank-line terminator closes them. It never decodes buffered
// bytes as text until a full line is available, so a chunk boundary that
// splits a multi-byte UTF-8 sequence never corrupts output.
type Parser struct {
	buf   []byte
	lines []fieldLine
	log   *slog.Logger
}

type fieldLine struct {
	field string
	value string
}

// New returns a Parser. log may be nil, in which case drops are silent.
func New(log *slog.Logger) *Parser {
	return &Parser{log: log}
}

// Feed appends a chunk of raw upstream bytes and returns every complete
// event the new bytes make available, in order.
func (p *Parser) Feed(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		line, rest, ok := splitLine(p.buf)
		if !ok {
			break
		}
		p.buf = rest

		if len(line) == 0 {
			if ev, ok := p.closeEvent(); ok {
				events = append(events, ev)
			}
			continue
		}
		p.consumeLine(line)
	}

	if len(p.buf) > maxBufferedBytes {
		if p.log != nil {
			p.log.Warn("sse: unterminated buffer exceeded cap, dropping", "bytes", len(p.buf))
		}
		p.buf = p.buf[:0]
		p.lines = p.lines[:0]
	}

	return events
}

// Flush emits any event left pending after the upstream connection
// closes, covering a terminator that was only implicit (stream ended
// exactly at the last data: line with no trailing blank line).
func (p *Parser) Flush() []Event {
	if ev, ok := p.closeEvent(); ok {
		return []Event{ev}
	}
	return nil
}

func (p *Parser) consumeLine(line []byte) {
	if len(line) > 0 && line[0] == ':' {
		return // comment line
	}
	field, value := splitField(line)
	p.lines = append(p.lines, fieldLine{field: field, value: value})
}

func (p *Parser) closeEvent() (Event, bool) {
	if len(p.lines) == 0 {
		return Event{}, false
	}
	var ev Event
	var data [][]byte
	for _, fl := range p.lines {
		switch fl.field {
		case "event":
			ev.Event = fl.value
		case "data":
			data = append(data, []byte(fl.value))
		case "id":
			ev.ID = fl.value
		case "retry":
			ev.Retry = parseInt(fl.value)
		}
	}
	p.lines = p.lines[:0]
	if ev.Event == "" && len(data) == 0 {
		return Event{}, false
	}
	ev.Data = string(bytes.Join(data, []byte("\n")))
	return ev, true
}

// splitLine finds the first line terminator (\n or \r\n) in buf and
// returns the line (terminator excluded), the remaining bytes, and
// whether a full line was found.
func splitLine(buf []byte) (line, rest []byte, ok bool) {
	idx := bytes.IndexByte(buf, '\n')
	if idx == -1 {
		return nil, buf, false
	}
	end := idx
	if end > 0 && buf[end-1] == '\r' {
		end--
	}
	return buf[:end], buf[idx+1:], true
}

func splitField(line []byte) (field, value string) {
	idx := bytes.IndexByte(line, ':')
	if idx == -1 {
		return string(line), ""
	}
	field = string(line[:idx])
	v := line[idx+1:]
	if len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return field, string(v)
}

func parseInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
