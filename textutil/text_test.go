package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \n\t b   c "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hell…", Truncate("hello world", 5))
	assert.Equal(t, "", Truncate("hello", 0))
	assert.Equal(t, "héé…", Truncate("hééllo", 4))
}

func TestIsTruncated(t *testing.T) {
	assert.True(t, IsTruncated("Attackers exploit new flaw in..."))
	assert.True(t, IsTruncated("Attackers exploit new flaw in…  "))
	assert.True(t, IsTruncated("Read the rest [...]"))
	assert.False(t, IsTruncated("Attackers exploit new flaw"))
}

func TestExcerptHTML(t *testing.T) {
	doc := "<html><head><script>var x=1;</script></head><body><p>" + strings.Repeat("é", 100) + "</p></body></html>"
	got := ExcerptHTML(doc, 21)
	assert.True(t, strings.HasPrefix(got, "<body>"))
	assert.LessOrEqual(t, len(got), 21)
	assert.True(t, strings.ToValidUTF8(got, "?") == got)

	assert.Equal(t, "<body>x</body>", ExcerptHTML("<body>x</body>", 0))
}
