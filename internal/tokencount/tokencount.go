// Package tokencount implements the heuristic estimator backing
// POST /v1/messages/count_tokens: ceil(total_chars / 4), counting only
// textual content and excluding base64 image bodies. It is a stand-in
// for a real tokenizer, never a precise count.
package tokencount

import (
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
)

// Estimate returns the heuristic input token count for a request: the
// system prompt plus every message's rendered text, base64 image bodies
// excluded.
func Estimate(system anthropicapi.SystemPrompt, messages []anthropicapi.Message) int {
	chars := len(system.Flatten())
	for _, m := range messages {
		chars += len(renderMessageText(m))
	}
	return ceilDiv4(chars)
}

func renderMessageText(m anthropicapi.Message) string {
	if m.Content.IsString {
		return m.Content.Text
	}
	var out []byte
	for _, b := range m.Content.Blocks {
		switch b.Kind {
		case anthropicapi.BlockText:
			out = append(out, b.Text...)
		case anthropicapi.BlockThinking:
			out = append(out, b.Thinking...)
		case anthropicapi.BlockToolResult:
			out = append(out, b.ToolResultContent.Flatten()...)
		case anthropicapi.BlockToolUse:
			out = append(out, b.ToolUseInput...)
		// BlockImage and BlockUnknown contribute no text: image bodies are
		// base64, never part of the character estimate.
		default:
		}
	}
	return string(out)
}

func ceilDiv4(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}
