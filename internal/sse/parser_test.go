package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_SingleEvent(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("event: message\ndata: {\"a\":1}\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Event)
	assert.Equal(t, `{"a":1}`, events[0].Data)
}

func TestParser_MultipleDataLinesJoinedWithNewline(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("data: line1\ndata: line2\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "line1\nline2", events[0].Data)
}

func TestParser_CRLFTerminators(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("data: hello\r\n\r\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Data)
}

func TestParser_CommentLinesIgnored(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte(":keepalive\ndata: x\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Data)
}

func TestParser_DoneSentinel(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("data: [DONE]\n\n"))
	require.Len(t, events, 1)
	assert.True(t, events[0].IsDone())
}

func TestParser_ChunkBoundaryMidLine(t *testing.T) {
	whole := []byte("event: message\ndata: {\"x\":\"y\"}\n\n")
	for split := 0; split <= len(whole); split++ {
		p := New(nil)
		var got []Event
		got = append(got, p.Feed(whole[:split])...)
		got = append(got, p.Feed(whole[split:])...)
		got = append(got, p.Flush()...)
		require.Len(t, got, 1, "split at byte %d", split)
		assert.Equal(t, "message", got[0].Event)
		assert.Equal(t, `{"x":"y"}`, got[0].Data)
	}
}

func TestParser_ChunkBoundarySplitsUTF8Rune(t *testing.T) {
	// "é" is 0xC3 0xA9 in UTF-8: split the payload between those two bytes.
	whole := []byte("data: caf\xc3\xa9\n\n")
	split := len("data: caf\xc3")
	p := New(nil)
	var got []Event
	got = append(got, p.Feed(whole[:split])...)
	got = append(got, p.Feed(whole[split:])...)
	require.Len(t, got, 1)
	assert.Equal(t, "café", got[0].Data)
}

func TestParser_MultipleEventsAcrossOneFeed(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("data: one\n\ndata: two\n\n"))
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Data)
	assert.Equal(t, "two", events[1].Data)
}

func TestParser_FlushEmitsImplicitTrailingEvent(t *testing.T) {
	p := New(nil)
	events := p.Feed([]byte("data: trailing\n"))
	require.Len(t, events, 0)
	flushed := p.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, "trailing", flushed[0].Data)
}

func TestParser_OverCapBufferIsDroppedNotGrownForever(t *testing.T) {
	p := New(nil)
	huge := make([]byte, maxBufferedBytes+1024)
	for i := range huge {
		huge[i] = 'a'
	}
	events := p.Feed(huge)
	assert.Empty(t, events)
	assert.Less(t, len(p.buf), maxBufferedBytes+1024)
}
