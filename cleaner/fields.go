package cleaner

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/selector"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

const minTitleLength = 4

var secondaryTitles = append(append([]string{}, selector.TitleCandidates...),
	"meta[property='og:title']",
	"meta[name='twitter:title']",
)

// fullTitles are consulted when a title looks cut short by the publisher.
var fullTitles = []string{
	"meta[property='og:title']",
	"meta[name='twitter:title']",
	"h1",
	"title",
}

// untruncate swaps a teaser title ending in an ellipsis for a longer
// candidate that starts with the same words.
func untruncate(doc *goquery.Document, title string) string {
	if !textutil.IsTruncated(title) {
		return title
	}
	prefix := strings.ToLower(trimEllipsis(title))
	for _, sel := range fullTitles {
		cand := selector.Text(doc, sel)
		if sel == "title" {
			cand = trimSiteName(cand)
		}
		if len(cand) > len(prefix) && strings.HasPrefix(strings.ToLower(cand), prefix) && !textutil.IsTruncated(cand) {
			return cand
		}
	}
	return title
}

func trimEllipsis(s string) string {
	s = strings.TrimSpace(s)
	for _, suf := range []string{"[…]", "[...]", "(more)", "...", "…"} {
		s = strings.TrimSuffix(s, suf)
	}
	return strings.TrimSpace(s)
}

// documentTitle reads <title> without the trailing site name.
func documentTitle(doc *goquery.Document) string {
	return trimSiteName(textutil.CleanText(doc.Find("head title").First().Text()))
}

var siteSeparators = []string{" | ", " - ", " – ", " — ", " :: "}

func trimSiteName(title string) string {
	for _, sep := range siteSeparators {
		if i := strings.LastIndex(title, sep); i >= minTitleLength {
			return strings.TrimSpace(title[:i])
		}
	}
	return title
}

func (e *Extractor) author(doc *goquery.Document, configured string, read *readabilityResult) string {
	if sel, ok := usable(configured); ok {
		if a := cleanAuthor(selector.Text(doc, sel)); a != "" {
			return a
		}
	}
	_, a := selector.First(doc, selector.AuthorCandidates, func(s string) bool { return cleanAuthor(s) != "" })
	if a = cleanAuthor(a); a != "" {
		return a
	}
	if art, ok := read.get(); ok {
		return cleanAuthor(art.byline)
	}
	return ""
}

func cleanAuthor(s string) string {
	s = textutil.CleanText(s)
	for _, p := range []string{"by ", "written by ", "posted by ", "author: "} {
		if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
		}
	}
	if len(s) < 2 || len(s) > 100 {
		return ""
	}
	return s
}

func (e *Extractor) publishDate(doc *goquery.Document, configured string) *time.Time {
	if sel, ok := usable(configured); ok {
		if t, ok := parseDate(selector.Text(doc, sel)); ok {
			return &t
		}
	}
	for _, sel := range selector.DateCandidates {
		if t, ok := parseDate(selector.Text(doc, sel)); ok {
			return &t
		}
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"January 2, 2006 3:04 PM",
	"Jan. 2, 2006",
	"01/02/2006",
}

// parseDate accepts the date formats commonly found in article markup. The
// text may carry a label such as "Published:" or "Updated".
func parseDate(s string) (time.Time, bool) {
	s = textutil.CleanText(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, label := range []string{"published:", "published", "updated:", "updated", "posted on", "posted:", "on "} {
		if len(s) > len(label) && strings.EqualFold(s[:len(label)], label) {
			s = strings.TrimSpace(s[len(label):])
			break
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
