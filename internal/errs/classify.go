package errs

import "strings"

// ClassifyUpstreamStatus refines a raw upstream_status error into a more
// specific, actionable kind by pattern-matching the response body. Falls
// back to a plain upstream_status error when no pattern matches.
func ClassifyUpstreamStatus(statusCode int, body string) *Error {
	lower := strings.ToLower(body)

	switch {
	case statusCode == 400 && containsAny(lower, "context_length_exceeded", "maximum context length", "too many tokens"):
		return UpstreamContextExceeded("the request exceeds the backend's context window; shorten the conversation or reduce max_tokens")
	case statusCode == 429 && containsAny(lower, "quota", "insufficient_quota", "billing"):
		return UpstreamQuotaExhausted("the backend account has exhausted its quota")
	case statusCode == 429:
		return UpstreamRateLimited("the backend is rate-limiting requests; retry after a short delay")
	default:
		return UpstreamStatus(statusCode, preview(body))
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func preview(body string) string {
	const max = 300
	if len(body) <= max {
		return body
	}
	return body[:max] + "…"
}
