// Package validate enforces the ordered shape and size checks on an
// inbound request before it reaches the translator.
package validate

import (
	"encoding/base64"
	"log/slog"

	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/pkg/anthropicapi"
)

const (
	maxMessages    = 100000
	maxContentSize = 5 * 1024 * 1024 // 5 MiB
	minMaxTokens   = 1
	maxMaxTokens   = 100000
)

var acceptedImageMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Request validates req, returning the first violation found: message
// count, aggregate content size, max_tokens bounds, then image blocks.
// Non-fatal conditions (metadata/service_tier present) are logged as
// warnings and otherwise ignored.
func Request(req *anthropicapi.Request, log *slog.Logger) *errs.Error {
	if len(req.Messages) == 0 {
		return errs.EmptyMessages()
	}
	if len(req.Messages) > maxMessages {
		return errs.TooManyMessages(len(req.Messages), maxMessages)
	}
	if size := aggregateContentSize(req); size > maxContentSize {
		return errs.ContentTooLarge(size, maxContentSize)
	}
	if req.MaxTokens != 0 && (req.MaxTokens < minMaxTokens || req.MaxTokens > maxMaxTokens) {
		return errs.InvalidMaxTokens(invalidMaxTokensMessage(req.MaxTokens))
	}
	if err := validateImages(req.Messages); err != nil {
		return err
	}

	if log != nil {
		if len(req.Metadata) > 0 {
			log.Warn("request carried metadata; not forwarded upstream")
		}
		if req.ServiceTier != "" {
			log.Warn("request carried service_tier; not forwarded upstream", "service_tier", req.ServiceTier)
		}
	}
	return nil
}

func invalidMaxTokensMessage(v int) string {
	if v < minMaxTokens {
		return "max_tokens must be at least 1"
	}
	return "max_tokens must not exceed 100000"
}

// aggregateContentSize sums the byte length of system plus every
// message's content: text, thinking, tool_use input, flattened tool_result
// text, image base64 data, and the raw bytes of unknown blocks.
func aggregateContentSize(req *anthropicapi.Request) int {
	size := len(req.System.Flatten())
	for _, m := range req.Messages {
		size += messageContentSize(m.Content)
	}
	return size
}

func messageContentSize(c anthropicapi.MessageContent) int {
	if c.IsString {
		return len(c.Text)
	}
	total := 0
	for _, b := range c.Blocks {
		total += blockContentSize(b)
	}
	return total
}

func blockContentSize(b anthropicapi.ContentBlock) int {
	switch b.Kind {
	case anthropicapi.BlockText:
		return len(b.Text)
	case anthropicapi.BlockThinking:
		return len(b.Thinking)
	case anthropicapi.BlockToolUse:
		return len(b.ToolUseInput)
	case anthropicapi.BlockToolResult:
		return len(b.ToolResultContent.Flatten())
	case anthropicapi.BlockImage:
		return len(b.Image.Data)
	default:
		return len(b.Raw)
	}
}

func validateImages(messages []anthropicapi.Message) *errs.Error {
	for _, m := range messages {
		if m.Content.IsString {
			continue
		}
		for _, b := range m.Content.Blocks {
			if b.Kind != anthropicapi.BlockImage {
				continue
			}
			if err := validateImageSource(b.Image); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateImageSource(src anthropicapi.ImageSource) *errs.Error {
	if src.Type != "base64" {
		return errs.InvalidImage("image source type must be \"base64\"; URL image sources are not supported")
	}
	if !acceptedImageMediaTypes[src.MediaType] {
		return errs.InvalidImage("unsupported image media_type: " + src.MediaType)
	}
	if _, err := base64.StdEncoding.DecodeString(src.Data); err != nil {
		return errs.InvalidImage("image data is not well-formed base64")
	}
	return nil
}
