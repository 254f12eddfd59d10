// Package translate converts a validated Anthropic Messages request into
// an OpenAI Chat Completions request: a type-switch over the closed
// content-block union, translated field by field into the target wire
// shape.
package translate

import (
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

const maxStopSequences = 4

// ToOpenAIRequest converts req into the upstream request body. model is
// the already-resolved canonical model ID (post model-cache lookup).
func ToOpenAIRequest(req *anthropicapi.Request, model string) *openaiapi.Request {
	out := &openaiapi.Request{
		Model:  model,
		Stream: true,
	}

	out.Messages = buildMessages(req)

	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	if req.TopP != nil {
		out.TopP = req.TopP
	}
	if len(req.StopSequences) > 0 {
		n := len(req.StopSequences)
		if n > maxStopSequences {
			n = maxStopSequences
		}
		out.Stop = append([]string(nil), req.StopSequences[:n]...)
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		out.MaxTokens = &mt
	}
	if len(req.Tools) > 0 {
		out.Tools = make([]openaiapi.Tool, len(req.Tools))
		for i, t := range req.Tools {
			out.Tools[i] = openaiapi.Tool{
				Type: "function",
				Function: openaiapi.ToolFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			}
		}
	}
	if req.ToolChoice != nil {
		out.ToolChoice = toOpenAIToolChoice(req.ToolChoice)
		if req.ToolChoice.DisableParallelToolUse {
			f := false
			out.ParallelToolCalls = &f
		}
	}

	return out
}

func toOpenAIToolChoice(tc *anthropicapi.ToolChoice) interface{} {
	switch tc.Type {
	case "auto", "any":
		return "auto"
	case "none":
		return "none"
	case "tool":
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": tc.Name},
		}
	default:
		return tc.Type
	}
}

// buildMessages walks req.System and req.Messages in order, producing the
// OpenAI message array. A trailing assistant message with no content is
// dropped before forwarding.
func buildMessages(req *anthropicapi.Request) []openaiapi.Message {
	var out []openaiapi.Message

	if req.System.Present {
		if text := req.System.Flatten(); text != "" {
			out = append(out, openaiapi.Message{Role: openaiapi.RoleSystem, Content: text})
		}
	}

	msgs := req.Messages
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		if last.Role == anthropicapi.RoleAssistant && last.Content.IsEmpty() {
			msgs = msgs[:n-1]
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case anthropicapi.RoleUser:
			out = append(out, translateUserMessage(m)...)
		case anthropicapi.RoleAssistant:
			out = append(out, translateAssistantMessage(m))
		}
	}
	return out
}

// translateUserMessage returns the user message plus any tool_result
// blocks it carried, each promoted to its own following {role:"tool"}
// message.
func translateUserMessage(m anthropicapi.Message) []openaiapi.Message {
	if m.Content.IsString {
		return []openaiapi.Message{{Role: openaiapi.RoleUser, Content: m.Content.Text}}
	}

	var parts []openaiapi.ContentPart
	var toolResults []openaiapi.Message
	for _, b := range m.Content.Blocks {
		switch b.Kind {
		case anthropicapi.BlockText:
			parts = append(parts, openaiapi.ContentPart{Type: "text", Text: b.Text})
		case anthropicapi.BlockImage:
			parts = append(parts, openaiapi.ContentPart{
				Type: "image_url",
				ImageURL: &openaiapi.ImageURL{
					URL: "data:" + b.Image.MediaType + ";base64," + b.Image.Data,
				},
			})
		case anthropicapi.BlockToolResult:
			toolResults = append(toolResults, openaiapi.Message{
				Role:       openaiapi.RoleTool,
				Content:    toolResultContent(b),
				ToolCallID: b.ToolResultUseID,
			})
		}
	}

	var msgs []openaiapi.Message
	if len(parts) > 0 {
		msgs = append(msgs, openaiapi.Message{Role: openaiapi.RoleUser, Content: parts})
	}
	msgs = append(msgs, toolResults...)
	return msgs
}

func toolResultContent(b anthropicapi.ContentBlock) string {
	content := b.ToolResultContent.Flatten()
	if b.ToolResultIsError && content != "" {
		return "Error: " + content
	}
	return content
}

// translateAssistantMessage joins text into Content, folds thinking
// blocks into a <think> prefix, and converts tool_use blocks into
// tool_calls.
func translateAssistantMessage(m anthropicapi.Message) openaiapi.Message {
	out := openaiapi.Message{Role: openaiapi.RoleAssistant}

	if m.Content.IsString {
		out.Content = m.Content.Text
		return out
	}

	var thinking, text string
	var toolCalls []openaiapi.ToolCall
	for _, b := range m.Content.Blocks {
		switch b.Kind {
		case anthropicapi.BlockThinking:
			thinking += b.Thinking
		case anthropicapi.BlockText:
			text += b.Text
		case anthropicapi.BlockToolUse:
			args := string(b.ToolUseInput)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, openaiapi.ToolCall{
				ID:   b.ToolUseID,
				Type: "function",
				Function: openaiapi.ToolCallFunc{
					Name:      b.ToolUseName,
					Arguments: args,
				},
			})
		}
	}

	content := text
	if thinking != "" {
		content = "<think>" + thinking + "</think>" + content
	}
	out.Content = content
	if len(toolCalls) > 0 {
		out.ToolCalls = toolCalls
	}
	return out
}
