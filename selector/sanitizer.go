// Package selector validates untrusted selector strings (AI output,
// cached records, caller input) before they touch a live document.
package selector

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/andybalholm/cascadia"
)

// MaxLength is the longest selector accepted.
const MaxLength = 256

// ErrRejected is returned (wrapped) for every rejected selector.
var ErrRejected = errors.New("selector rejected")

// nullish values that models emit instead of omitting a field.
var nullish = map[string]struct{}{
	"null":      {},
	"nil":       {},
	"none":      {},
	"undefined": {},
	"n/a":       {},
	"false":     {},
}

// markupTokens never appear outside a quoted value in a selector that only
// locates content.
var markupTokens = []string{"javascript:", "=>", "${", "<", "{", "}", ";", "`"}

// callTokens are rejected when they start a token, so ".function" and
// "div.eval-box" stay valid while "function(" and "eval (" do not.
var callTokens = []string{"function", "eval", "alert", "expression", "url", "import"}

// globalTokens are rejected when they start a token and are followed by a
// property access, as in "document.querySelector".
var globalTokens = []string{"document", "window"}

// Sanitize returns the selector with surrounding whitespace trimmed if it is
// a syntactically valid, content-locating CSS selector; the selector text
// itself is never rewritten. Otherwise it returns an error wrapping
// ErrRejected that names the reason.
func Sanitize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrRejected)
	}
	if len(s) > MaxLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrRejected, MaxLength)
	}
	if _, ok := nullish[strings.ToLower(s)]; ok {
		return "", fmt.Errorf("%w: placeholder value %q", ErrRejected, s)
	}

	bare, err := unquoted(s)
	if err != nil {
		return "", err
	}
	if err := scanTokens(strings.ToLower(bare)); err != nil {
		return "", err
	}
	if _, err := cascadia.ParseGroup(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return s, nil
}

// unquoted returns s with the contents of quoted strings blanked out, after
// checking every rune against the allow-list for its context. Quoted
// attribute values may hold any printable rune.
func unquoted(s string) (string, error) {
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range s {
		switch {
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
				b.WriteRune(r)
				continue
			case !unicode.IsPrint(r) && r != '\t':
				return "", fmt.Errorf("%w: non-printable character %q in quoted value", ErrRejected, r)
			}
		case escaped:
			escaped = false
			b.WriteRune('x')
		case r == '"' || r == '\'':
			quote = r
			b.WriteRune(r)
		case r == '\\':
			escaped = true
		case bareAllowed(r):
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("%w: disallowed character %q", ErrRejected, r)
		}
	}
	if quote != 0 {
		return "", fmt.Errorf("%w: unterminated quoted value", ErrRejected)
	}
	return b.String(), nil
}

// bareAllowed reports whether r may appear outside a quoted value.
func bareAllowed(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '\t', '-', '_', '.', '#', '[', ']', '=', ':', '(', ')',
		'>', '+', '~', '*', ',', '^', '$', '|', '<', '{', '}', ';', '`', '/':
		// The markup runes pass here so scanTokens can name them.
		return true
	}
	return false
}

func scanTokens(bare string) error {
	for _, tok := range markupTokens {
		if strings.Contains(bare, tok) {
			return fmt.Errorf("%w: script-like token %q", ErrRejected, tok)
		}
	}
	for _, tok := range callTokens {
		for _, at := range tokenStarts(bare, tok) {
			rest := strings.TrimLeft(bare[at+len(tok):], " \t")
			if strings.HasPrefix(rest, "(") {
				return fmt.Errorf("%w: script-like call %q", ErrRejected, tok+"(")
			}
		}
	}
	for _, tok := range globalTokens {
		for _, at := range tokenStarts(bare, tok) {
			if strings.HasPrefix(bare[at+len(tok):], ".") {
				return fmt.Errorf("%w: script-like token %q", ErrRejected, tok+".")
			}
		}
	}
	return nil
}

// tokenStarts returns the offsets where tok begins a token: at the start of
// bare or after a rune that cannot continue a class, id or tag name.
func tokenStarts(bare, tok string) []int {
	var out []int
	for from := 0; ; {
		i := strings.Index(bare[from:], tok)
		if i < 0 {
			return out
		}
		at := from + i
		if at == 0 || !identRune(rune(bare[at-1])) {
			out = append(out, at)
		}
		from = at + len(tok)
	}
}

func identRune(r rune) bool {
	return r == '-' || r == '_' || r == '.' || r == '#' || r >= 0x80 ||
		unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Valid reports whether raw passes Sanitize.
func Valid(raw string) bool {
	_, err := Sanitize(raw)
	return err == nil
}

// Optional sanitizes a selector that may legitimately be absent. Empty and
// placeholder values yield "" without error; anything else must be valid.
func Optional(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	if _, ok := nullish[strings.ToLower(s)]; ok {
		return "", nil
	}
	return Sanitize(raw)
}
