// Package sanitize cleans free-text input before it is persisted or
// reflected back into rendered pages. The cleaners are pure functions:
// no I/O, deterministic for a given input.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxEmailLen = 254
	MaxPhoneLen = 20
	MaxURLLen   = 500
)

var (
	reTag     = regexp.MustCompile(`<[^>]*>`)
	reScheme  = regexp.MustCompile(`(?i)javascript:`)
	reHandler = regexp.MustCompile(`(?i)\bon\w+=`)
	reDataURI = regexp.MustCompile(`(?i)data:[^\s,]*;base64`)
	reControl = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")

	// Deliberately lossy: only the entities an editor is likely to paste,
	// not a full HTML entity decoder.
	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
		"&#x2F;", "/",
	)

	rePhoneDrop = regexp.MustCompile(`[^0-9 +\-().]`)
)

// Text strips markup, script-injection tokens and control characters,
// trims whitespace and truncates to max bytes. max <= 0 means unlimited.
func Text(s string, max int) string {
	out := reTag.ReplaceAllString(s, "")
	out = reScheme.ReplaceAllString(out, "")
	out = reHandler.ReplaceAllString(out, "")
	out = reDataURI.ReplaceAllString(out, "")
	out = entityReplacer.Replace(out)
	out = reControl.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	if max > 0 && len(out) > max {
		out = strings.TrimSpace(truncate(out, max))
	}
	return out
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Email lowercases and strips characters that could break out of an
// attribute or header when the address is redisplayed.
func Email(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "").Replace(out)
	if len(out) > MaxEmailLen {
		out = truncate(out, MaxEmailLen)
	}
	return out
}

// Phone keeps only digits, spaces and common phone punctuation.
func Phone(s string) string {
	out := rePhoneDrop.ReplaceAllString(s, "")
	out = strings.TrimSpace(out)
	if len(out) > MaxPhoneLen {
		out = strings.TrimSpace(truncate(out, MaxPhoneLen))
	}
	return out
}

// URL accepts only http(s) URLs and site-relative paths; anything else
// (javascript:, data:, mailto:, bare hostnames) yields an empty string.
func URL(s string) string {
	out := strings.TrimSpace(s)
	if out == "" {
		return ""
	}
	lower := strings.ToLower(out)
	if !strings.HasPrefix(lower, "http:") && !strings.HasPrefix(lower, "https:") && !strings.HasPrefix(out, "/") {
		return ""
	}
	out = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "").Replace(out)
	if len(out) > MaxURLLen {
		out = truncate(out, MaxURLLen)
	}
	return out
}
