package synth

import "github.com/openbridge/messages-gateway/pkg/anthropicapi"

// translateFinishReason maps an upstream OpenAI finish_reason to the
// Anthropic stop_reason vocabulary. Any value outside the known set
// (including an empty string) maps to end_turn.
func translateFinishReason(reason string) anthropicapi.StopReason {
	switch reason {
	case "stop":
		return anthropicapi.StopEndTurn
	case "length":
		return anthropicapi.StopMaxTokens
	case "tool_calls", "function_call":
		return anthropicapi.StopToolUse
	case "content_filter":
		return anthropicapi.StopEndTurn
	default:
		return anthropicapi.StopEndTurn
	}
}
