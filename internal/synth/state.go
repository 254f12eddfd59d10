// Package synth drives the Anthropic SSE event sequence for one response:
// it consumes parsed upstream (OpenAI-shaped) SSE events and emits the
// matching Anthropic events, tracking open content blocks, reconstructing
// streamed tool-call arguments, and translating the finish reason.
package synth

import "github.com/openbridge/messages-gateway/pkg/anthropicapi"

// maxOpenBlocks caps the content blocks opened in a single response, so
// state does not grow without bound against a pathological upstream. Past
// this, opening another block fails: HandleUpstreamEvent returns an error
// for that event and no block is opened for its content. The stream is not
// closed early and no error text is emitted.
const maxOpenBlocks = 256

// blockKind discriminates the synthesizer's notion of "currently open
// block", distinct from anthropicapi.BlockKind because it also has a
// "none" state the wire vocabulary doesn't need.
type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockToolUse
)

// toolUseState is the synthesizer's bookkeeping for one open tool_use
// block: its Anthropic block index, its id/name, the fragment buffer
// (kept for validation and logging, never re-emitted), and the upstream
// tool-call index it is keyed by.
type toolUseState struct {
	blockIndex    int
	upstreamIndex int
	id            string
	name          string
	argBuf        string
}

// state is the per-request stream state. One per response; never shared.
type state struct {
	messageID   string
	active      blockKind
	activeIndex int
	blockIndex  int
	tool        *toolUseState
	stopReason  anthropicapi.StopReason
	outputChars int
	closed      bool
}

func newState(messageID string) *state {
	return &state{
		messageID:  messageID,
		active:     blockNone,
		stopReason: anthropicapi.StopEndTurn,
	}
}
