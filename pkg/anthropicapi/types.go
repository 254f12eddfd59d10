// Package anthropicapi defines the Anthropic Messages API wire shapes the
// translator accepts from clients and emits back to them.
//
// Content blocks are represented as a closed tagged union (Kind plus one
// populated payload field) rather than the open interface-with-discriminator
// pattern common in multi-provider SDKs, because the translator only ever
// needs to understand the five block kinds the Messages API defines plus a
// forward-compatible escape hatch for anything new.
package anthropicapi

import (
	"encoding/json"
	"fmt"
)

// Request is the body of POST /v1/messages and POST /v1/messages/count_tokens.
type Request struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	System        SystemPrompt    `json:"system,omitempty"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    *ToolChoice     `json:"tool_choice,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`

	// Accepted but not forwarded; validated/warned on only.
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	ServiceTier string          `json:"service_tier,omitempty"`

	// Stream is accepted for API compatibility; upstream calls are always
	// made with streaming enabled regardless of its value.
	Stream bool `json:"stream,omitempty"`
}

// ThinkingConfig mirrors Anthropic's extended-thinking request block. It
// is decoded but the translator does not read it: prior-turn thinking
// blocks are folded into assistant content whether or not it is set.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds either a bare string or an ordered list of
// ContentBlock values; the Messages API allows both shapes for a message's
// "content" field.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
	// IsString records which shape was present on the wire, distinguishing
	// an empty-string message from one with zero content blocks.
	IsString bool
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.Text = s
		c.IsString = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	c.Blocks = blocks
	c.IsString = false
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsString {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// IsEmpty reports whether this content carries no text and no blocks, the
// condition under which a trailing assistant message is dropped.
func (c MessageContent) IsEmpty() bool {
	if c.IsString {
		return c.Text == ""
	}
	return len(c.Blocks) == 0
}

// SystemPrompt holds either a bare system string or an ordered list of
// text blocks; the Messages API allows both shapes.
type SystemPrompt struct {
	Text     string
	Blocks   []ContentBlock
	IsString bool
	Present  bool
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	s.Present = true
	trimmed := trimLeadingSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s.Text = str
		s.IsString = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("system: %w", err)
	}
	s.Blocks = blocks
	return nil
}

// Flatten renders the system prompt as a single string, joining block text
// with newlines, for forwarding as an OpenAI system message.
func (s SystemPrompt) Flatten() string {
	if s.IsString {
		return s.Text
	}
	out := ""
	for i, b := range s.Blocks {
		if b.Kind != BlockText {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// BlockKind discriminates ContentBlock's payload.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockThinking   BlockKind = "thinking"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
	// BlockUnknown marks a block whose "type" was not one of the five
	// above; Raw holds the original bytes for forward-compatible passthrough.
	BlockUnknown BlockKind = "unknown"
)

// ImageSource is the only image source the translator accepts: an inline
// base64 payload. URL sources are not supported.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is the closed tagged union of Anthropic content block types.
type ContentBlock struct {
	Kind BlockKind

	// BlockText
	Text string

	// BlockImage
	Image ImageSource

	// BlockThinking
	Thinking string

	// BlockToolUse
	ToolUseID    string
	ToolUseName  string
	ToolUseInput json.RawMessage

	// BlockToolResult
	ToolResultUseID   string
	ToolResultContent ToolResultContent
	ToolResultIsError bool

	// BlockUnknown
	Raw json.RawMessage
}

// ToolResultContent holds a tool_result block's content, which may be a bare
// string or an ordered list of (typically text/image) blocks.
type ToolResultContent struct {
	Text     string
	Blocks   []ContentBlock
	IsString bool
}

func (t *ToolResultContent) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		t.IsString = true
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Text = s
		t.IsString = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("tool_result content: %w", err)
	}
	t.Blocks = blocks
	return nil
}

// Flatten renders tool_result content as a single string for serialization
// into an OpenAI "tool" message.
func (t ToolResultContent) Flatten() string {
	if t.IsString {
		return t.Text
	}
	out := ""
	for _, b := range t.Blocks {
		if b.Kind != BlockText {
			continue
		}
		out += b.Text
	}
	return out
}

type wireBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *ImageSource    `json:"source,omitempty"`
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	Thinking string `json:"thinking,omitempty"`
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("content block: %w", err)
	}
	switch BlockKind(w.Type) {
	case BlockText:
		b.Kind = BlockText
		b.Text = w.Text
	case BlockImage:
		b.Kind = BlockImage
		if w.Source != nil {
			b.Image = *w.Source
		}
	case BlockThinking:
		b.Kind = BlockThinking
		b.Thinking = w.Thinking
	case BlockToolUse:
		b.Kind = BlockToolUse
		b.ToolUseID = w.ID
		b.ToolUseName = w.Name
		b.ToolUseInput = w.Input
	case BlockToolResult:
		b.Kind = BlockToolResult
		b.ToolResultUseID = w.ToolUseID
		b.ToolResultIsError = w.IsError
		if len(w.Content) > 0 {
			if err := b.ToolResultContent.UnmarshalJSON(w.Content); err != nil {
				return err
			}
		}
	default:
		b.Kind = BlockUnknown
		b.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BlockText:
		return json.Marshal(wireBlock{Type: string(BlockText), Text: b.Text})
	case BlockImage:
		src := b.Image
		return json.Marshal(wireBlock{Type: string(BlockImage), Source: &src})
	case BlockThinking:
		return json.Marshal(wireBlock{Type: string(BlockThinking), Thinking: b.Thinking})
	case BlockToolUse:
		return json.Marshal(wireBlock{
			Type:  string(BlockToolUse),
			ID:    b.ToolUseID,
			Name:  b.ToolUseName,
			Input: b.ToolUseInput,
		})
	case BlockToolResult:
		content, err := json.Marshal(b.ToolResultContent.Text)
		if !b.ToolResultContent.IsString {
			content, err = json.Marshal(b.ToolResultContent.Blocks)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireBlock{
			Type:      string(BlockToolResult),
			ToolUseID: b.ToolResultUseID,
			Content:   content,
			IsError:   b.ToolResultIsError,
		})
	default:
		return append(json.RawMessage(nil), b.Raw...), nil
	}
}

// Tool is a client-supplied function tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice controls how the model should pick among tools.
type ToolChoice struct {
	Type                   string `json:"type"`
	Name                   string `json:"name,omitempty"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

func trimLeadingSpace(data []byte) []byte {
	i := 0
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return data[i:]
}
