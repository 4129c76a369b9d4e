package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"
	"sync"

	readability "github.com/go-shiori/go-readability"

	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// minReadableLength is the shortest readability text treated as a real
// article body.
const minReadableLength = 50

type readableArticle struct {
	title  string
	byline string
	text   string
	html   string
}

// readabilityResult runs go-readability at most once, on first use. Most
// pages never reach the document tier.
type readabilityResult struct {
	once    sync.Once
	rawHTML string
	pageURL string
	article readableArticle
	ok      bool
}

func lazyReadability(rawHTML, pageURL string) *readabilityResult {
	return &readabilityResult{rawHTML: rawHTML, pageURL: pageURL}
}

func (r *readabilityResult) get() (readableArticle, bool) {
	r.once.Do(func() {
		r.article, r.ok = extractReadable(r.rawHTML, r.pageURL)
	})
	return r.article, r.ok
}

func extractReadable(rawHTML, pageURL string) (readableArticle, bool) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		slog.Warn("readability: invalid source URL", "url", pageURL, "error", err)
		return readableArticle{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed", "url", pageURL, "error", err)
		return readableArticle{}, false
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minReadableLength {
		slog.Debug("readability: extracted content too short", "url", pageURL, "length", len(text))
		return readableArticle{}, false
	}

	return readableArticle{
		title:  textutil.CleanText(article.Title),
		byline: article.Byline,
		text:   normalizeParagraphs(text),
		html:   article.Content,
	}, true
}

// normalizeParagraphs collapses whitespace inside paragraphs and keeps blank
// lines between them.
func normalizeParagraphs(text string) string {
	var parts []string
	for _, block := range strings.Split(text, "\n") {
		if t := textutil.CleanText(block); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
