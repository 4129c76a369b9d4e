package cleaner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

const para = "Attackers are chaining two bugs in the appliance firmware to gain a foothold inside corporate networks."

func storyPage() string {
	return `<html><head><title>Critical VPN flaw exploited | Example Security</title>
<meta property="og:title" content="Critical VPN flaw exploited in the wild by ransomware crews"></head><body>
<nav><a href="/">Home</a> <a href="/news">News</a></nav>
<div class="story">
  <h2 class="story-title">Critical VPN flaw exploited in the wild…</h2>
  <span class="writer">By Alex Doe</span>
  <time datetime="2024-05-01T10:00:00Z">May 1, 2024</time>
  <div class="story-text">` + strings.Repeat("<p>"+para+"</p>", 4) + `</div>
</div>
<footer><p>Copyright Example Security. All rights reserved and so on for the footer text here.</p></footer>
</body></html>`
}

func newTestExtractor(markdown bool) *Extractor {
	return NewExtractor(config.ExtractConfig{MinParagraphLength: 80, MinContentLength: 200, Markdown: markdown})
}

func TestExtract_SelectorTier(t *testing.T) {
	set := &models.SelectorSet{
		TitleSelector:   "h2.story-title",
		ContentSelector: "div.story-text",
		AuthorSelector:  ".writer",
		DateSelector:    "time",
		Confidence:      0.9,
		Origin:          models.OriginAI,
	}

	got, err := newTestExtractor(false).Extract(storyPage(), "https://www.example-security.com/a/1", set)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractSelector, got.ExtractionMethod)
	assert.Equal(t, 0.9, got.Confidence)
	// the selector title is a teaser; og:title carries the full headline
	assert.Equal(t, "Critical VPN flaw exploited in the wild by ransomware crews", got.Title)
	assert.Equal(t, strings.TrimSuffix(strings.Repeat(para+"\n\n", 4), "\n\n"), got.Content)
	assert.Equal(t, "Alex Doe", got.Author)
	require.NotNil(t, got.PublishDate)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *got.PublishDate)
	require.NotNil(t, got.Selectors)
	assert.Equal(t, models.OriginAI, got.Selectors.Origin)
	assert.Empty(t, got.Markdown)
}

func TestExtract_StaleSelectorFallsToSecondary(t *testing.T) {
	page := `<html><head><title>Patch Tuesday roundup - Example</title></head><body>
<article><h1 class="entry-title">Patch Tuesday roundup</h1>
<div class="entry-content">` + strings.Repeat("<p>"+para+"</p>", 3) + `</div></article></body></html>`
	set := &models.SelectorSet{TitleSelector: ".old-title", ContentSelector: ".old-body", Confidence: 0.9}

	got, err := newTestExtractor(false).Extract(page, "https://example.com/p", set)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractSecondary, got.ExtractionMethod)
	assert.Equal(t, "Patch Tuesday roundup", got.Title)
	assert.Contains(t, got.Content, para)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestExtract_ParagraphTier(t *testing.T) {
	page := `<html><body>
<div class="wrap"><h1>Botnet takedown announced</h1>
<div class="sidebar"><p>` + para + ` Sidebar copy that must not be collected at all.</p></div>
<div class="text-col">` + strings.Repeat("<p>"+para+"</p>", 2) +
		`<p>Investigators said the operators rotated infrastructure weekly to avoid sinkholing by defenders.</p>
<p>The advisory lists indicators of compromise and recommends resetting every credential on affected hosts.</p>
<p>short line</p></div></div></body></html>`

	got, err := newTestExtractor(false).Extract(page, "https://example.com/p", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractParagraphs, got.ExtractionMethod)
	assert.Equal(t, "Botnet takedown announced", got.Title)
	assert.Equal(t, 1, strings.Count(got.Content, para), "near-duplicate blocks are dropped")
	assert.Contains(t, got.Content, "rotated infrastructure")
	assert.NotContains(t, got.Content, "Sidebar copy")
	assert.NotContains(t, got.Content, "short line")
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestExtract_DomainFallbackTitle(t *testing.T) {
	page := `<html><body><div>` +
		`<p>` + para + `</p>` +
		`<p>Investigators said the operators rotated infrastructure weekly to avoid sinkholing by defenders.</p>` +
		`<p>The advisory lists indicators of compromise and recommends resetting every credential on affected hosts.</p>` +
		`</div></body></html>`

	got, err := newTestExtractor(false).Extract(page, "https://www.dark-reading.com/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "Dark Reading", got.Title)
	assert.Equal(t, models.ExtractDomainFallback, got.ExtractionMethod)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
}

func TestExtract_EmptyDocumentIsError(t *testing.T) {
	got, err := newTestExtractor(false).Extract(`<html><body></body></html>`, "https://example.com/empty", nil)
	require.Error(t, err)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.KindParsing, se.Kind)
	assert.Equal(t, "extract", se.Step)
	assert.Equal(t, models.ExtractError, got.ExtractionMethod)
	assert.Equal(t, "https://example.com/empty", got.SourceURL)
}

func TestExtract_UnsafeSelectorsIgnored(t *testing.T) {
	set := &models.SelectorSet{TitleSelector: "null", ContentSelector: "javascript:alert(1)", Confidence: 0.9}

	got, err := newTestExtractor(false).Extract(storyPage(), "https://example-security.com/a/1", set)
	require.NoError(t, err)
	assert.NotEqual(t, models.ExtractSelector, got.ExtractionMethod)
	assert.NotEmpty(t, got.Title)
	assert.Contains(t, got.Content, para)
}

func TestExtract_Markdown(t *testing.T) {
	page := `<html><body><article><h1>Ransomware hits hospital chain</h1>` +
		strings.Repeat("<p>"+para+"</p>", 3) +
		`<p>See the <a href="/advisory">advisory</a> for details on the affected versions and patches.</p></article></body></html>`
	set := &models.SelectorSet{TitleSelector: "h1", ContentSelector: "article", Confidence: 0.6}

	got, err := newTestExtractor(true).Extract(page, "https://news.example.com/r", set)
	require.NoError(t, err)
	assert.Contains(t, got.Markdown, "# Ransomware hits hospital chain")
	assert.Contains(t, got.Markdown, "[advisory](")
}

// Whatever the document, a non-error extraction has a non-empty title.
func TestExtract_TitleNeverEmpty(t *testing.T) {
	docs := []string{
		storyPage(),
		`<html><head><title></title></head><body><p>` + strings.Repeat(para+" ", 3) + `</p></body></html>`,
		`<html><body>` + strings.Repeat("plain body text without any markup at all ", 10) + `</body></html>`,
		`<html><head><title>Hi</title></head><body><main>` + strings.Repeat("<p>"+para+"</p>", 3) + `</main></body></html>`,
	}
	sets := []*models.SelectorSet{
		nil,
		{TitleSelector: "h9", ContentSelector: "article"},
		{TitleSelector: "title", ContentSelector: "body", Confidence: 0.4},
	}
	for i, doc := range docs {
		for j, set := range sets {
			got, err := newTestExtractor(false).Extract(doc, "https://blog.example.org/post", set)
			if err != nil {
				assert.Equal(t, models.ExtractError, got.ExtractionMethod, "doc %d set %d", i, j)
				continue
			}
			assert.NotEmpty(t, got.Title, "doc %d set %d", i, j)
			assert.NotEmpty(t, got.Content, "doc %d set %d", i, j)
			assert.NotEqual(t, models.ExtractError, got.ExtractionMethod)
		}
	}
}

func TestWeakestAndConfidence(t *testing.T) {
	assert.Equal(t, models.ExtractParagraphs, weakest(models.ExtractSelector, models.ExtractParagraphs))
	assert.Equal(t, models.ExtractDomainFallback, weakest(models.ExtractDomainFallback, models.ExtractSecondary))
	assert.Equal(t, 0.6, confidence(0.6, models.ExtractSelector, models.ExtractSelector))
	assert.Equal(t, 0.3, confidence(0.9, models.ExtractDomainFallback, models.ExtractSelector))
	assert.Equal(t, 1.0, confidence(0, models.ExtractSelector))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"Published: March 3, 2024", time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), true},
		{"Updated Jan 2, 2023", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestCleanAuthor(t *testing.T) {
	assert.Equal(t, "Jane Roe", cleanAuthor("  By   Jane Roe "))
	assert.Equal(t, "Sam Lee", cleanAuthor("Written by Sam Lee"))
	assert.Empty(t, cleanAuthor("X"))
	assert.Empty(t, cleanAuthor(strings.Repeat("a", 120)))
}

func TestTrimSiteName(t *testing.T) {
	assert.Equal(t, "Patch now", trimSiteName("Patch now | Example Security"))
	assert.Equal(t, "Patch now", trimSiteName("Patch now - Example"))
	assert.Equal(t, "Standalone headline", trimSiteName("Standalone headline"))
}
