package sanitize

import (
	"regexp"
	"strings"
)

var (
	entityOrAmpersand = regexp.MustCompile(`&(?:amp;|lt;|gt;|quot;|apos;|#[0-9]+;|#x[0-9A-Fa-f]+;)?`)

	decorativePrefix = regexp.MustCompile(`(?i)^/?\s*([A-Za-zÄÖÜäöüß]+\s*){0,2}(text|vers)\s*:/*\s*`)
	inlineAnnotation = regexp.MustCompile(`/\s*[^/]+:/`)
	whitespaceRun    = regexp.MustCompile(`\s{2,}`)
)

// StripInvalidXMLChars removes every rune that is not allowed in an XML 1.0
// document. Order and all legal runes are preserved.
func StripInvalidXMLChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if isXMLChar(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// EscapeBareAmpersands rewrites every '&' that does not start a predefined
// entity or a character reference into "&amp;".
func EscapeBareAmpersands(s string) string {
	return entityOrAmpersand.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}

// FieldText cleans a free-text field: it drops a leading label such as
// "Losungstext:" or "Lehrtext:/", removes "/word:/" annotations and collapses
// whitespace runs.
func FieldText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return strings.TrimSpace(raw)
	}
	text := strings.TrimSpace(raw)
	text = decorativePrefix.ReplaceAllString(text, "")
	text = inlineAnnotation.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
