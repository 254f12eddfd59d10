// Package auth resolves and masks the client credential forwarded to the
// upstream OpenAI-compatible backend.
package auth

import (
	"net/http"
	"strings"

	"github.com/openbridge/messages-gateway/internal/errs"
)

const anthropicOAuthPrefix = "sk-ant-"

// Resolve extracts the client credential from the inbound request, in the
// precedence order: Authorization (Bearer-stripped) then x-api-key.
//
// A credential with the sk-ant- prefix is rejected: the upstream here is
// never Anthropic itself, so forwarding an Anthropic token would silently
// leak it to an incompatible backend.
func Resolve(r *http.Request) (string, *errs.Error) {
	cred := extract(r)
	if cred == "" {
		return "", errs.InvalidCredential("no credential found in Authorization or x-api-key header")
	}
	if strings.HasPrefix(cred, anthropicOAuthPrefix) {
		return "", errs.UnsupportedCredential("an Anthropic API key was supplied, but the configured backend is not Anthropic")
	}
	return cred, nil
}

func extract(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		return strings.TrimSpace(stripBearer(authz))
	}
	if apiKey := strings.TrimSpace(r.Header.Get("x-api-key")); apiKey != "" {
		return apiKey
	}
	return ""
}

func stripBearer(value string) string {
	const prefix = "bearer "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return value[len(prefix):]
	}
	return value
}

// Mask renders a credential as "first4…last4" for diagnostics.
// Credentials shorter than 8 characters mask to a flat "***" since no
// meaningful prefix/suffix split exists.
func Mask(credential string) string {
	if len(credential) < 8 {
		return "***"
	}
	return credential[:4] + "…" + credential[len(credential)-4:]
}
