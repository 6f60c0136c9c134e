// Package htmlsanitize strips markup from user-supplied text fields
// (file and folder names, request descriptions, admin remarks) before
// they are stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element; text content survives, script and style
// bodies do not.
var strict = bluemonday.StrictPolicy()

// PlainText returns s with all HTML removed and surrounding whitespace
// trimmed. Entities that bluemonday escapes are decoded again so that
// "R&D" is stored as typed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no HTML tags.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
