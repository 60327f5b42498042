// Package redact scrubs credentials, session tokens, password hashes and
// card numbers from strings before they reach logs.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedHashPlaceholder       = "[REDACTED_HASH]"
)

type rule struct {
	pattern *regexp.Regexp
	replace func(string) string
}

func placeholder(p string) func(string) string {
	return func(string) string { return p }
}

// Rules run in order; JWTs go first so their base64 segments are not
// partially matched by the later patterns.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		replace: placeholder(RedactedJWTPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`(?i)(postgres|postgresql|mysql|redis)://[^@\s]+@`),
		replace: placeholder(RedactedCredentialPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`(?i)(password|passwd|pwd|secret)([=:\s]?['"]?)[^'"&\s]{3,}`),
		replace: placeholder(RedactedCredentialPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`\$2[abxy]?\$\d{2}\$[./A-Za-z0-9]{53}`),
		replace: placeholder(RedactedHashPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`\b[0-9]{16}\b`),
		replace: func(number string) string { return "************" + number[12:] },
	},
}

// String redacts sensitive fragments of input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllStringFunc(result, r.replace)
	}
	return result
}

// Error redacts sensitive fragments of err.Error().
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
