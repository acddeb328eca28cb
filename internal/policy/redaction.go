package policy

import (
	"regexp"
	"unicode/utf8"
)

var (
	apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}\b`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// Redact masks secrets and common PII in text that is about to be logged.
// Vocabulary content itself is left alone.
func Redact(input string) string {
	out := apiKeyPattern.ReplaceAllString(input, "[REDACTED_KEY]")
	out = emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	// Cards before phones, or long card numbers are tagged as phones.
	out = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	out = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Truncate shortens s to at most n bytes for log fields, marking the cut.
// The cut never splits a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
