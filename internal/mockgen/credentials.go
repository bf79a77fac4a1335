package mockgen

import "strings"

// placeholderCredentials are values that API docs and form generators fill in
// by default. They are never sent to a provider.
var placeholderCredentials = map[string]bool{
	"":             true,
	"string":       true,
	"your-api-key": true,
	"your_api_key": true,
	"<api-key>":    true,
	"<api_key>":    true,
	"sk-...":       true,
	"sk-xxx":       true,
	"changeme":     true,
	"example":      true,
	"none":         true,
	"null":         true,
	"undefined":    true,
}

// IsPlaceholderCredential reports whether key is empty or a known placeholder.
func IsPlaceholderCredential(key string) bool {
	return placeholderCredentials[strings.ToLower(strings.TrimSpace(key))]
}

// ResolveCredential returns the per-request key when it is usable, otherwise
// the process default. It returns ErrMissingCredential when neither is usable.
func ResolveCredential(explicit, fallback string) (string, error) {
	if !IsPlaceholderCredential(explicit) {
		return strings.TrimSpace(explicit), nil
	}
	if !IsPlaceholderCredential(fallback) {
		return strings.TrimSpace(fallback), nil
	}
	return "", NewGenerationError("ResolveCredential", ErrMissingCredential, "")
}
