package textutil

import (
	"strings"
	"unicode/utf8"
)

// ellipsis markers that indicate a string was cut by the source site.
var truncationSuffixes = []string{"...", "…", "[…]", "[...]", "(more)"}

// CleanText collapses runs of whitespace into single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, appending "…" when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

// IsTruncated reports whether s looks like it was cut short by the
// publisher (teaser titles, listing excerpts).
func IsTruncated(s string) bool {
	s = strings.TrimSpace(s)
	for _, suf := range truncationSuffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// ExcerptHTML bounds an HTML document to max bytes for AI prompts,
// preferring to start at <body> and cutting on a rune boundary.
func ExcerptHTML(html string, max int) string {
	if idx := strings.Index(strings.ToLower(html), "<body"); idx > 0 {
		html = html[idx:]
	}
	if max <= 0 || len(html) <= max {
		return html
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(html[cut]) {
		cut--
	}
	return html[:cut]
}
