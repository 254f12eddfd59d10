package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

func TestToOpenAIRequest_SystemPromptPrepended(t *testing.T) {
	req := &anthropicapi.Request{
		System:   anthropicapi.SystemPrompt{Text: "be terse", IsString: true, Present: true},
		Messages: []anthropicapi.Message{{Role: anthropicapi.RoleUser, Content: stringContent("hi")}},
	}
	out := ToOpenAIRequest(req, "gpt-4o")

	require.Len(t, out.Messages, 2)
	assert.Equal(t, openaiapi.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, "be terse", out.Messages[0].Content)
	assert.Equal(t, openaiapi.RoleUser, out.Messages[1].Role)
	assert.Equal(t, "hi", out.Messages[1].Content)
	assert.True(t, out.Stream)
}

func TestToOpenAIRequest_TrailingEmptyAssistantMessageDropped(t *testing.T) {
	req := &anthropicapi.Request{
		Messages: []anthropicapi.Message{
			{Role: anthropicapi.RoleUser, Content: stringContent("hi")},
			{Role: anthropicapi.RoleAssistant, Content: anthropicapi.MessageContent{IsString: true, Text: ""}},
		},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	require.Len(t, out.Messages, 1)
	assert.Equal(t, openaiapi.RoleUser, out.Messages[0].Role)
}

func TestToOpenAIRequest_StopSequencesTruncatedToFour(t *testing.T) {
	req := &anthropicapi.Request{
		Messages:      []anthropicapi.Message{{Role: anthropicapi.RoleUser, Content: stringContent("hi")}},
		StopSequences: []string{"a", "b", "c", "d", "e"},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	assert.Equal(t, []string{"a", "b", "c", "d"}, out.Stop)
}

func TestToOpenAIRequest_ToolsWrappedAsFunctions(t *testing.T) {
	req := &anthropicapi.Request{
		Messages: []anthropicapi.Message{{Role: anthropicapi.RoleUser, Content: stringContent("hi")}},
		Tools: []anthropicapi.Tool{
			{Name: "add", Description: "adds two numbers", InputSchema: json.RawMessage(`{"type":"object"}`)},
		},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "function", out.Tools[0].Type)
	assert.Equal(t, "add", out.Tools[0].Function.Name)
	assert.JSONEq(t, `{"type":"object"}`, string(out.Tools[0].Function.Parameters))
}

func TestToOpenAIRequest_DisableParallelToolUse(t *testing.T) {
	req := &anthropicapi.Request{
		Messages:   []anthropicapi.Message{{Role: anthropicapi.RoleUser, Content: stringContent("hi")}},
		ToolChoice: &anthropicapi.ToolChoice{Type: "auto", DisableParallelToolUse: true},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	require.NotNil(t, out.ParallelToolCalls)
	assert.False(t, *out.ParallelToolCalls)
}

func TestToOpenAIRequest_UserContentBlocksAndToolResultFollows(t *testing.T) {
	req := &anthropicapi.Request{
		Messages: []anthropicapi.Message{
			{Role: anthropicapi.RoleUser, Content: anthropicapi.MessageContent{Blocks: []anthropicapi.ContentBlock{
				{Kind: anthropicapi.BlockText, Text: "look at this"},
				{Kind: anthropicapi.BlockToolResult, ToolResultUseID: "t1", ToolResultContent: anthropicapi.ToolResultContent{IsString: true, Text: "42"}},
			}}},
		},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	require.Len(t, out.Messages, 2)
	assert.Equal(t, openaiapi.RoleUser, out.Messages[0].Role)
	assert.Equal(t, openaiapi.RoleTool, out.Messages[1].Role)
	assert.Equal(t, "t1", out.Messages[1].ToolCallID)
	assert.Equal(t, "42", out.Messages[1].Content)
}

func TestToOpenAIRequest_AssistantToolUseBecomesToolCalls(t *testing.T) {
	req := &anthropicapi.Request{
		Messages: []anthropicapi.Message{
			{Role: anthropicapi.RoleUser, Content: stringContent("add 1 and 2")},
			{Role: anthropicapi.RoleAssistant, Content: anthropicapi.MessageContent{Blocks: []anthropicapi.ContentBlock{
				{Kind: anthropicapi.BlockToolUse, ToolUseID: "t1", ToolUseName: "add", ToolUseInput: json.RawMessage(`{"a":1,"b":2}`)},
			}}},
		},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	require.Len(t, out.Messages, 2)
	assistant := out.Messages[1]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "t1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "add", assistant.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"a":1,"b":2}`, assistant.ToolCalls[0].Function.Arguments)
}

func TestToOpenAIRequest_AssistantThinkingInterleavedAsThinkPrefix(t *testing.T) {
	req := &anthropicapi.Request{
		Messages: []anthropicapi.Message{
			{Role: anthropicapi.RoleUser, Content: stringContent("why?")},
			{Role: anthropicapi.RoleAssistant, Content: anthropicapi.MessageContent{Blocks: []anthropicapi.ContentBlock{
				{Kind: anthropicapi.BlockThinking, Thinking: "considering options"},
				{Kind: anthropicapi.BlockText, Text: "because"},
			}}},
		},
	}
	out := ToOpenAIRequest(req, "gpt-4o")
	assert.Equal(t, "<think>considering options</think>because", out.Messages[1].Content)
}

func stringContent(s string) anthropicapi.MessageContent {
	return anthropicapi.MessageContent{IsString: true, Text: s}
}
