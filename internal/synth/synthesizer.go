package synth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/openbridge/messages-gateway/internal/sse"
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

// Synthesizer drives one response's Anthropic SSE event sequence. It is
// not safe for concurrent use; each request owns exactly one.
type Synthesizer struct {
	w     *sse.Writer
	model string
	st    *state
}

// New returns a Synthesizer that will announce model as the response's
// "model" field.
func New(w *sse.Writer, model string) *Synthesizer {
	return &Synthesizer{w: w, model: model, st: newState(newMessageID())}
}

// Start emits message_start, the first event of every response.
func (s *Synthesizer) Start() error {
	payload := anthropicapi.MessageStartPayload{
		Type: "message_start",
		Message: anthropicapi.MessageEnvelope{
			ID:      s.st.messageID,
			Type:    "message",
			Role:    "assistant",
			Model:   s.model,
			Content: []json.RawMessage{},
			Usage:   anthropicapi.Usage{InputTokens: 0, OutputTokens: 0},
		},
	}
	return s.emit(anthropicapi.EventMessageStart, payload)
}

// HandleUpstreamEvent processes one parsed upstream SSE event. It returns
// done=true when ev carries the [DONE] sentinel, signalling the caller to
// proceed to Close.
func (s *Synthesizer) HandleUpstreamEvent(ev sse.Event) (done bool, err error) {
	if ev.IsDone() {
		return true, nil
	}
	if ev.Data == "" {
		return false, nil
	}

	var chunk openaiapi.StreamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return false, fmt.Errorf("synth: parse upstream chunk: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}
	choice := chunk.Choices[0]

	if choice.Message != nil {
		if err := s.handleFullMessage(choice.Message); err != nil {
			return false, err
		}
	}
	if choice.Delta != nil {
		if err := s.handleDelta(choice.Delta); err != nil {
			return false, err
		}
	}
	if choice.FinishReason != nil {
		s.st.stopReason = translateFinishReason(*choice.FinishReason)
	}
	return false, nil
}

// handleDelta processes one incremental delta: reasoning_content first,
// then content, then tool_calls.
func (s *Synthesizer) handleDelta(d *openaiapi.Delta) error {
	if d.ReasoningContent != "" {
		if err := s.ensureBlock(blockThinking); err != nil {
			return err
		}
		s.st.outputChars += len(d.ReasoningContent)
		if err := s.emit(anthropicapi.EventContentBlockDelta, anthropicapi.ContentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: s.st.activeIndex,
			Delta: mustJSON(anthropicapi.ThinkingDelta{Type: "thinking_delta", Thinking: d.ReasoningContent}),
		}); err != nil {
			return err
		}
	}

	if d.Content != "" {
		if err := s.ensureBlock(blockText); err != nil {
			return err
		}
		s.st.outputChars += len(d.Content)
		if err := s.emit(anthropicapi.EventContentBlockDelta, anthropicapi.ContentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: s.st.activeIndex,
			Delta: mustJSON(anthropicapi.TextDelta{Type: "text_delta", Text: d.Content}),
		}); err != nil {
			return err
		}
	}

	for _, tc := range d.ToolCalls {
		if err := s.handleToolCallDelta(tc); err != nil {
			return err
		}
	}
	return nil
}

// handleToolCallDelta accumulates one fragment of a partial tool call,
// opening a new tool_use block whenever the upstream index changes. The
// argument buffer is retained only for validation and logging; each
// fragment is emitted as it arrives, the buffer never is.
func (s *Synthesizer) handleToolCallDelta(tc openaiapi.ToolCallDelta) error {
	if s.st.active != blockToolUse || s.st.tool == nil || s.st.tool.upstreamIndex != tc.Index {
		if err := s.closeActive(); err != nil {
			return err
		}
		id := tc.ID
		if id == "" {
			id = syntheticToolUseID()
		}
		name := ""
		if tc.Function != nil {
			name = tc.Function.Name
		}
		idx, err := s.nextBlockIndex()
		if err != nil {
			return err
		}
		s.st.active = blockToolUse
		s.st.activeIndex = idx
		s.st.tool = &toolUseState{blockIndex: idx, upstreamIndex: tc.Index, id: id, name: name}

		if err := s.emit(anthropicapi.EventContentBlockStart, anthropicapi.ContentBlockStartPayload{
			Type:         "content_block_start",
			Index:        idx,
			ContentBlock: mustJSON(anthropicapi.ToolUseBlockStart{Type: "tool_use", ID: id, Name: name, Input: map[string]interface{}{}}),
		}); err != nil {
			return err
		}
	} else if tc.Function != nil && tc.Function.Name != "" && s.st.tool.name == "" {
		s.st.tool.name = tc.Function.Name
	}

	if tc.Function == nil || tc.Function.Arguments == "" {
		return nil
	}
	s.st.tool.argBuf += tc.Function.Arguments
	s.st.outputChars += len(tc.Function.Arguments)
	return s.emit(anthropicapi.EventContentBlockDelta, anthropicapi.ContentBlockDeltaPayload{
		Type:  "content_block_delta",
		Index: s.st.activeIndex,
		Delta: mustJSON(anthropicapi.InputJSONDelta{Type: "input_json_delta", PartialJSON: tc.Function.Arguments}),
	})
}

// handleFullMessage synthesizes the full event sequence in one burst for
// an upstream that ignored stream:true and returned a complete message
// object. Logical ordering is preserved: thinking, then text, then
// tool_use.
func (s *Synthesizer) handleFullMessage(m *openaiapi.FullMessage) error {
	if m.ReasoningContent != "" {
		if err := s.handleDelta(&openaiapi.Delta{ReasoningContent: m.ReasoningContent}); err != nil {
			return err
		}
	}
	if m.Content != "" {
		if err := s.handleDelta(&openaiapi.Delta{Content: m.Content}); err != nil {
			return err
		}
	}
	for i, tc := range m.ToolCalls {
		delta := openaiapi.ToolCallDelta{
			Index: i,
			ID:    tc.ID,
			Function: &openaiapi.ToolCallFuncDelta{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
		if err := s.handleToolCallDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// ensureBlock opens kind as the active block if it is not already active,
// closing whatever else was open first.
func (s *Synthesizer) ensureBlock(kind blockKind) error {
	if s.st.active == kind {
		return nil
	}
	if err := s.closeActive(); err != nil {
		return err
	}
	idx, err := s.nextBlockIndex()
	if err != nil {
		return err
	}
	s.st.active = kind
	s.st.activeIndex = idx

	var block interface{}
	switch kind {
	case blockText:
		block = anthropicapi.TextBlockStart{Type: "text", Text: ""}
	case blockThinking:
		block = anthropicapi.ThinkingBlockStart{Type: "thinking", Thinking: ""}
	}
	return s.emit(anthropicapi.EventContentBlockStart, anthropicapi.ContentBlockStartPayload{
		Type:         "content_block_start",
		Index:        idx,
		ContentBlock: mustJSON(block),
	})
}

// closeActive emits content_block_stop for whatever block is open, if any.
func (s *Synthesizer) closeActive() error {
	if s.st.active == blockNone {
		return nil
	}
	idx := s.st.activeIndex
	s.st.active = blockNone
	s.st.tool = nil
	return s.emit(anthropicapi.EventContentBlockStop, anthropicapi.ContentBlockStopPayload{
		Type:  "content_block_stop",
		Index: idx,
	})
}

// nextBlockIndex allocates the next dense block index, enforcing
// maxOpenBlocks.
func (s *Synthesizer) nextBlockIndex() (int, error) {
	if s.st.blockIndex >= maxOpenBlocks {
		return 0, fmt.Errorf("synth: exceeded %d content blocks in one response", maxOpenBlocks)
	}
	idx := s.st.blockIndex
	s.st.blockIndex++
	return idx, nil
}

// Close emits the closure sequence: content_block_stop for any active
// block, then message_delta carrying the translated stop reason and
// output-token estimate, then message_stop.
func (s *Synthesizer) Close() error {
	if s.st.closed {
		return nil
	}
	s.st.closed = true

	if err := s.closeActive(); err != nil {
		return err
	}
	if err := s.emit(anthropicapi.EventMessageDelta, anthropicapi.MessageDeltaPayload{
		Type:  "message_delta",
		Delta: anthropicapi.MessageDeltaFields{StopReason: s.st.stopReason},
		Usage: anthropicapi.Usage{OutputTokens: estimateOutputTokens(s.st.outputChars)},
	}); err != nil {
		return err
	}
	return s.emit(anthropicapi.EventMessageStop, anthropicapi.MessageStopPayload{Type: "message_stop"})
}

// SetStopReason overrides the stop reason that Close will report, used
// when a mid-stream failure forces early closure with end_turn.
func (s *Synthesizer) SetStopReason(reason anthropicapi.StopReason) {
	s.st.stopReason = reason
}

// AppendErrorText injects a synthetic text block describing a mid-stream
// failure before closure. It opens a text block if none is active, writes
// the message, and leaves the block open for Close to terminate.
func (s *Synthesizer) AppendErrorText(message string) error {
	if err := s.ensureBlock(blockText); err != nil {
		return err
	}
	s.st.outputChars += len(message)
	return s.emit(anthropicapi.EventContentBlockDelta, anthropicapi.ContentBlockDeltaPayload{
		Type:  "content_block_delta",
		Index: s.st.activeIndex,
		Delta: mustJSON(anthropicapi.TextDelta{Type: "text_delta", Text: message}),
	})
}

func (s *Synthesizer) emit(event string, payload interface{}) error {
	return s.w.WriteNamed(event, mustJSON(payload))
}

// estimateOutputTokens is the same ceil(chars/4) heuristic as
// internal/tokencount, applied to emitted output. It is always what
// message_delta reports: a usage block sent by the upstream is not read.
func estimateOutputTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}

// mustJSON marshals v without HTML-escaping < > &. This is API response
// text, not embedded HTML; Anthropic's wire format leaves those
// characters bare.
func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return json.RawMessage("null")
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
