package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// Well-known selectors for article fields, most specific first.
var (
	TitleCandidates = []string{
		"h1.entry-title",
		"h1.post-title",
		"h1.article-title",
		"h1[itemprop=headline]",
		"article h1",
		"[itemprop=headline]",
		".headline",
		"main h1",
		"h1",
	}

	ContentCandidates = []string{
		"[itemprop=articleBody]",
		"article .entry-content",
		".entry-content",
		".post-content",
		".article-content",
		".article-body",
		".article__body",
		".story-body",
		"#article-body",
		".content-body",
		".post-body",
		"article",
		"main",
		"[role=main]",
	}

	AuthorCandidates = []string{
		"[rel=author]",
		"[itemprop=author] [itemprop=name]",
		"[itemprop=author]",
		".author-name",
		".byline a",
		".byline",
		".author",
		"meta[name=author]",
	}

	DateCandidates = []string{
		"time[datetime]",
		"[itemprop=datePublished]",
		"meta[property='article:published_time']",
		".published",
		".post-date",
		".entry-date",
		".date",
		"time",
	}
)

// Text returns the cleaned text of the first element matching sel. For
// <meta> the content attribute is used and for <time> the datetime attribute
// when present. Invalid selectors yield "".
func Text(doc *goquery.Document, sel string) string {
	if doc == nil || sel == "" {
		return ""
	}
	s := doc.Find(sel).First()
	if s.Length() == 0 {
		return ""
	}
	switch goquery.NodeName(s) {
	case "meta":
		return textutil.CleanText(s.AttrOr("content", ""))
	case "time":
		if dt := strings.TrimSpace(s.AttrOr("datetime", "")); dt != "" {
			return dt
		}
	}
	if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return textutil.CleanText(v)
	}
	return textutil.CleanText(s.Text())
}

// First returns the first candidate whose text satisfies accept, and that
// text.
func First(doc *goquery.Document, candidates []string, accept func(string) bool) (string, string) {
	for _, sel := range candidates {
		if t := Text(doc, sel); t != "" && accept(t) {
			return sel, t
		}
	}
	return "", ""
}
