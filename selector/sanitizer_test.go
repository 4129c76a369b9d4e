package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_AcceptsValidSelectorsUnchanged(t *testing.T) {
	valid := []string{
		"h1",
		"article",
		".post-content",
		"#main > div.entry-content p",
		"time[datetime]",
		"meta[property='og:title']",
		`a[rel="author"]`,
		"div.article__body, div.story-body",
		"ul li:nth-child(2n+1)",
		"section:not(.sidebar) h2",
		"[class^=byline]",
		"h1 ~ p + p",
		`a[href*="/news/"]`,
		`a[href^="mailto:"][href$="@example.com"]`,
		".function p",
		"div.window.main",
		".eval-box > h2",
		`[title="Café"]`,
		"div.actualités h1",
		"div\tp",
		`.md\:w-1\/2`,
		`a[href^="javascript:"]`,
		`[data-label="a; b {c}"]`,
	}
	for _, sel := range valid {
		got, err := Sanitize(sel)
		require.NoError(t, err, sel)
		assert.Equal(t, sel, got)
		assert.True(t, Valid(sel))
	}
}

func TestSanitize_RejectsNull(t *testing.T) {
	for _, sel := range []string{"null", "NULL", "Null", " null ", "undefined", "None"} {
		_, err := Sanitize(sel)
		require.Error(t, err, sel)
		assert.True(t, errors.Is(err, ErrRejected))
	}
}

func TestSanitize_RejectsScriptTokens(t *testing.T) {
	for _, sel := range []string{
		"javascript:alert(1)",
		"<script>alert(1)</script>",
		"document.querySelector('h1')",
		"() => h1",
		"div[style=expression(alert(1))]",
		"div[style=expression (alert(1))]",
		"p:has(function(){})",
		"window.location",
		"h1, document.body",
	} {
		assert.False(t, Valid(sel), sel)
	}
}

func TestSanitize_RejectsDisallowedCharacters(t *testing.T) {
	for _, sel := range []string{
		"h1; drop table",
		"div{color:red}",
		"p`",
		"h1!",
		"div & span",
		"p\n<img>",
	} {
		_, err := Sanitize(sel)
		assert.ErrorIs(t, err, ErrRejected, sel)
	}
}

func TestSanitize_RejectsSyntaxErrors(t *testing.T) {
	for _, sel := range []string{"div[", "..a", "h1 >", "#", `a[href="/x]`, "a/b"} {
		assert.False(t, Valid(sel), sel)
	}
}

func TestSanitize_RejectsEmptyAndLong(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("   "))

	long := make([]byte, MaxLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, Valid(string(long)))
}

func TestOptional(t *testing.T) {
	got, err := Optional("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Optional("null")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Optional(".byline")
	require.NoError(t, err)
	assert.Equal(t, ".byline", got)

	_, err = Optional("<b>")
	assert.Error(t, err)
}

func TestSanitize_TrimsOnlySurroundingSpace(t *testing.T) {
	got, err := Sanitize("  div.story\tp  ")
	require.NoError(t, err)
	assert.Equal(t, "div.story\tp", got)
}
