package modelcache

import (
	"strings"

	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

// Category is a cosmetic grouping shown only in the unknown-model catalog
// rendering; it never affects routing or validation.
type Category string

const (
	CategoryFree      Category = "FREE"
	CategoryReasoning Category = "REASONING"
	CategoryStandard  Category = "STANDARD"
)

var reasoningMarkers = []string{"o1", "o3", "reasoning", "thinking"}

func categorize(entry openaiapi.ModelEntry) Category {
	id := strings.ToLower(entry.ID)

	if strings.Contains(id, "free") {
		return CategoryFree
	}
	if entry.Pricing != nil && entry.Pricing.Prompt == "0" && entry.Pricing.Completion == "0" {
		return CategoryFree
	}
	for _, marker := range reasoningMarkers {
		if strings.Contains(id, marker) {
			return CategoryReasoning
		}
	}
	return CategoryStandard
}
