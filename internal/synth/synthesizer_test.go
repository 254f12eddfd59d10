package synth

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbridge/messages-gateway/internal/sse"
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
)

// parsedEvent is a decoded SSE frame for assertions below.
type parsedEvent struct {
	event string
	data  map[string]interface{}
}

func run(t *testing.T, fn func(s *Synthesizer)) []parsedEvent {
	t.Helper()
	var buf bytes.Buffer
	w := sse.NewWriter(&buf, nil)
	s := New(w, "gpt-4o")
	require.NoError(t, s.Start())
	fn(s)
	require.NoError(t, s.Close())
	return parseEvents(t, buf.String())
}

func parseEvents(t *testing.T, raw string) []parsedEvent {
	t.Helper()
	var out []parsedEvent
	for _, block := range strings.Split(strings.TrimRight(raw, "\n"), "\n\n") {
		if block == "" {
			continue
		}
		lines := strings.SplitN(block, "\n", 2)
		require.Len(t, lines, 2)
		name := strings.TrimPrefix(lines[0], "event: ")
		dataLine := strings.TrimPrefix(lines[1], "data: ")
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(dataLine), &payload))
		out = append(out, parsedEvent{event: name, data: payload})
	}
	return out
}

func feedEvent(t *testing.T, s *Synthesizer, jsonPayload string) {
	t.Helper()
	_, err := s.HandleUpstreamEvent(sse.Event{Data: jsonPayload})
	require.NoError(t, err)
}

func TestSynthesizer_SimpleTextRoundTrip(t *testing.T) {
	events := run(t, func(s *Synthesizer) {
		feedEvent(t, s, `{"choices":[{"delta":{"content":"hello"}}]}`)
		feedEvent(t, s, `{"choices":[{"finish_reason":"stop"}]}`)
	})

	names := eventNames(events)
	assert.Equal(t, []string{
		anthropicapi.EventMessageStart,
		anthropicapi.EventContentBlockStart,
		anthropicapi.EventContentBlockDelta,
		anthropicapi.EventContentBlockStop,
		anthropicapi.EventMessageDelta,
		anthropicapi.EventMessageStop,
	}, names)

	delta := events[2].data["delta"].(map[string]interface{})
	assert.Equal(t, "text_delta", delta["type"])
	assert.Equal(t, "hello", delta["text"])

	md := events[4].data["delta"].(map[string]interface{})
	assert.Equal(t, "end_turn", md["stop_reason"])
}

func TestSynthesizer_ToolCallSplitArguments(t *testing.T) {
	events := run(t, func(s *Synthesizer) {
		feedEvent(t, s, `{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"add"}}]}}]}`)
		feedEvent(t, s, `{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":"}}]}}]}`)
		feedEvent(t, s, `{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1,\"b\":2}"}}]}}]}`)
		feedEvent(t, s, `{"choices":[{"finish_reason":"tool_calls"}]}`)
	})

	names := eventNames(events)
	assert.Equal(t, []string{
		anthropicapi.EventMessageStart,
		anthropicapi.EventContentBlockStart,
		anthropicapi.EventContentBlockDelta,
		anthropicapi.EventContentBlockDelta,
		anthropicapi.EventContentBlockStop,
		anthropicapi.EventMessageDelta,
		anthropicapi.EventMessageStop,
	}, names)

	block := events[1].data["content_block"].(map[string]interface{})
	assert.Equal(t, "tool_use", block["type"])
	assert.Equal(t, "t1", block["id"])
	assert.Equal(t, "add", block["name"])
	assert.Equal(t, map[string]interface{}{}, block["input"])

	frag1 := events[2].data["delta"].(map[string]interface{})
	frag2 := events[3].data["delta"].(map[string]interface{})
	assert.Equal(t, `{"a":`, frag1["partial_json"])
	assert.Equal(t, `1,"b":2}`, frag2["partial_json"])

	md := events[5].data["delta"].(map[string]interface{})
	assert.Equal(t, "tool_use", md["stop_reason"])
}

func TestSynthesizer_InterleavedThinkingThenText(t *testing.T) {
	events := run(t, func(s *Synthesizer) {
		feedEvent(t, s, `{"choices":[{"delta":{"reasoning_content":"considering"}}]}`)
		feedEvent(t, s, `{"choices":[{"delta":{"content":"4"}}]}`)
		feedEvent(t, s, `{"choices":[{"finish_reason":"stop"}]}`)
	})

	names := eventNames(events)
	assert.Equal(t, []string{
		anthropicapi.EventMessageStart,
		anthropicapi.EventContentBlockStart,
		anthropicapi.EventContentBlockDelta,
		anthropicapi.EventContentBlockStop,
		anthropicapi.EventContentBlockStart,
		anthropicapi.EventContentBlockDelta,
		anthropicapi.EventContentBlockStop,
		anthropicapi.EventMessageDelta,
		anthropicapi.EventMessageStop,
	}, names)

	thinkingStart := events[1].data["content_block"].(map[string]interface{})
	assert.Equal(t, "thinking", thinkingStart["type"])
	textStart := events[4].data["content_block"].(map[string]interface{})
	assert.Equal(t, "text", textStart["type"])
}

func TestSynthesizer_BlockIndicesAreDense(t *testing.T) {
	events := run(t, func(s *Synthesizer) {
		feedEvent(t, s, `{"choices":[{"delta":{"reasoning_content":"a"}}]}`)
		feedEvent(t, s, `{"choices":[{"delta":{"content":"b"}}]}`)
		feedEvent(t, s, `{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"f","arguments":"{}"}}]}}]}`)
	})

	var indices []int
	for _, e := range events {
		if e.event == anthropicapi.EventContentBlockStart {
			indices = append(indices, int(e.data["index"].(float64)))
		}
	}
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestSynthesizer_FinishReasonMapping(t *testing.T) {
	cases := map[string]anthropicapi.StopReason{
		"stop":           anthropicapi.StopEndTurn,
		"length":         anthropicapi.StopMaxTokens,
		"tool_calls":     anthropicapi.StopToolUse,
		"function_call":  anthropicapi.StopToolUse,
		"content_filter": anthropicapi.StopEndTurn,
		"unknown":        anthropicapi.StopEndTurn,
	}
	for reason, want := range cases {
		assert.Equal(t, want, translateFinishReason(reason), "reason %q", reason)
	}
}

func TestSynthesizer_DoneSentinelIsNotAnEvent(t *testing.T) {
	var buf bytes.Buffer
	w := sse.NewWriter(&buf, nil)
	s := New(w, "gpt-4o")
	require.NoError(t, s.Start())
	done, err := s.HandleUpstreamEvent(sse.Event{Data: "[DONE]"})
	require.NoError(t, err)
	assert.True(t, done)
}

func eventNames(events []parsedEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.event
	}
	return names
}
