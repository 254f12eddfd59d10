package anthropicapi

import "encoding/json"

// Event names emitted on the /v1/messages SSE stream.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
)

// StopReason is the Anthropic vocabulary for why generation stopped.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopStopSequence StopReason = "stop_sequence"
)

// Usage is the token-usage block carried on message_start/message_delta.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageStartPayload is the data payload of a message_start event.
type MessageStartPayload struct {
	Type    string          `json:"type"`
	Message MessageEnvelope `json:"message"`
}

// MessageEnvelope is the partial assistant message announced at stream start.
type MessageEnvelope struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Role         string            `json:"role"`
	Model        string            `json:"model"`
	Content      []json.RawMessage `json:"content"`
	StopReason   *StopReason       `json:"stop_reason"`
	StopSequence *string           `json:"stop_sequence"`
	Usage        Usage             `json:"usage"`
}

// ContentBlockStartPayload announces a new content block at a given index.
type ContentBlockStartPayload struct {
	Type         string          `json:"type"`
	Index        int             `json:"index"`
	ContentBlock json.RawMessage `json:"content_block"`
}

// ContentBlockDeltaPayload carries one incremental update to a block.
type ContentBlockDeltaPayload struct {
	Type  string          `json:"type"`
	Index int             `json:"index"`
	Delta json.RawMessage `json:"delta"`
}

// ContentBlockStopPayload closes a content block.
type ContentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaPayload carries the final stop reason and usage estimate.
type MessageDeltaPayload struct {
	Type  string             `json:"type"`
	Delta MessageDeltaFields `json:"delta"`
	Usage Usage              `json:"usage"`
}

// MessageDeltaFields is the "delta" object inside a message_delta event.
type MessageDeltaFields struct {
	StopReason   StopReason `json:"stop_reason"`
	StopSequence *string    `json:"stop_sequence"`
}

// MessageStopPayload has no fields beyond its type discriminator.
type MessageStopPayload struct {
	Type string `json:"type"`
}

// TextBlockStart/ThinkingBlockStart/ToolUseBlockStart are the
// "content_block" payloads nested in a content_block_start event.

type TextBlockStart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ThinkingBlockStart struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

type ToolUseBlockStart struct {
	Type  string                 `json:"type"`
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// TextDelta/ThinkingDelta/InputJSONDelta are the "delta" payloads nested in
// a content_block_delta event.

type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ThinkingDelta struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

type InputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}
