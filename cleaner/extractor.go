// Package cleaner turns a fetched article page into an ExtractedArticle.
//
// Every field is resolved through a fallback chain, strongest first:
//
//	selector   → the detected SelectorSet
//	secondary  → well-known article selectors
//	paragraphs → aggregation of paragraph-like blocks (content only)
//	document   → readability, then the whole body
//
// The title finally falls back to a name derived from the domain, so a
// successful extraction never has an empty title.
package cleaner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/selector"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// Confidence ceilings per tier. The article confidence is the minimum over
// the selector set and every tier that contributed.
var tierCeiling = map[string]float64{
	models.ExtractSelector:       1.0,
	models.ExtractSecondary:      0.7,
	models.ExtractParagraphs:     0.5,
	models.ExtractDocument:       0.4,
	models.ExtractDomainFallback: 0.3,
}

// tierRank orders tiers from strongest to weakest.
var tierRank = map[string]int{
	models.ExtractSelector:       0,
	models.ExtractSecondary:      1,
	models.ExtractParagraphs:     2,
	models.ExtractDocument:       3,
	models.ExtractDomainFallback: 4,
	models.ExtractError:          5,
}

// Extractor applies selector sets to documents. It is safe for concurrent use.
type Extractor struct {
	minParagraph int
	minContent   int
	markdown     bool
	md           *converter.Converter
}

// NewExtractor creates an Extractor from cfg.
func NewExtractor(cfg config.ExtractConfig) *Extractor {
	e := &Extractor{
		minParagraph: cfg.MinParagraphLength,
		minContent:   cfg.MinContentLength,
		markdown:     cfg.Markdown,
	}
	if e.minParagraph <= 0 {
		e.minParagraph = 80
	}
	if e.minContent <= 0 {
		e.minContent = 200
	}
	if e.markdown {
		e.md = newMarkdownConverter()
	}
	return e
}

// field is one resolved value and the tier that produced it.
type field struct {
	text string
	html string
	tier string
}

// Extract resolves the article fields of rawHTML. set may be nil, in which
// case extraction starts at the secondary tier.
//
// On failure the returned article carries ExtractionMethod "error" alongside
// a parsing ScrapeError.
func (e *Extractor) Extract(rawHTML, pageURL string, set *models.SelectorSet) (*models.ExtractedArticle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return e.failed(pageURL, classify.Classify(classify.StepExtract, fmt.Errorf("cleaner: parse document: %w", err)))
	}
	stripNoise(doc)

	if set == nil {
		set = &models.SelectorSet{Confidence: 1}
	}

	read := lazyReadability(rawHTML, pageURL)

	content := e.content(doc, set.ContentSelector, read)
	if content.text == "" {
		se := models.NewKindError(models.KindParsing, classify.StepExtract, "no article content found", nil)
		return e.failed(pageURL, se.WithContext("url", pageURL))
	}
	title := e.title(doc, set.TitleSelector, read, pageURL)

	article := &models.ExtractedArticle{
		Title:            title.text,
		Content:          content.text,
		Author:           e.author(doc, set.AuthorSelector, read),
		PublishDate:      e.publishDate(doc, set.DateSelector),
		SourceURL:        pageURL,
		ExtractionMethod: weakest(title.tier, content.tier),
		Confidence:       confidence(set.Confidence, title.tier, content.tier),
	}
	if set.TitleSelector != "" || set.ContentSelector != "" {
		cp := *set
		article.Selectors = &cp
	}

	if e.md != nil && content.html != "" {
		md, err := ToMarkdown(e.md, content.html, pageURL)
		if err != nil {
			slog.Warn("markdown conversion failed", "url", pageURL, "error", err)
		} else {
			article.Markdown = strings.TrimSpace(md)
		}
	}

	slog.Debug("article extracted",
		"url", pageURL,
		"method", article.ExtractionMethod,
		"title_tier", title.tier,
		"content_tier", content.tier,
		"confidence", article.Confidence,
	)
	return article, nil
}

func (e *Extractor) failed(pageURL string, se *models.ScrapeError) (*models.ExtractedArticle, error) {
	return &models.ExtractedArticle{
		SourceURL:        pageURL,
		ExtractionMethod: models.ExtractError,
	}, se
}

// content walks the content tiers. The configured selector only needs to
// yield non-trivial text; the generic tiers need MinContentLength.
func (e *Extractor) content(doc *goquery.Document, configured string, read *readabilityResult) field {
	if sel, ok := usable(configured); ok {
		if text, html := blockText(doc.Find(sel).First()); len(text) >= e.minContent/4 {
			return field{text: text, html: html, tier: models.ExtractSelector}
		}
	}

	for _, sel := range selector.ContentCandidates {
		if sel == configured {
			continue
		}
		if text, html := blockText(doc.Find(sel).First()); len(text) >= e.minContent {
			return field{text: text, html: html, tier: models.ExtractSecondary}
		}
	}

	if text, html := aggregateParagraphs(doc, e.minParagraph); len(text) >= e.minContent {
		return field{text: text, html: html, tier: models.ExtractParagraphs}
	}

	if art, ok := read.get(); ok {
		return field{text: art.text, html: art.html, tier: models.ExtractDocument}
	}
	if text, html := blockText(doc.Find("body")); text != "" {
		return field{text: text, html: html, tier: models.ExtractDocument}
	}
	return field{}
}

func (e *Extractor) title(doc *goquery.Document, configured string, read *readabilityResult, pageURL string) field {
	if sel, ok := usable(configured); ok {
		if t := selector.Text(doc, sel); len(t) >= minTitleLength {
			return field{text: untruncate(doc, t), tier: models.ExtractSelector}
		}
	}

	if _, t := selector.First(doc, secondaryTitles, func(s string) bool { return len(s) >= minTitleLength }); t != "" {
		return field{text: untruncate(doc, t), tier: models.ExtractSecondary}
	}

	if art, ok := read.get(); ok && len(art.title) >= minTitleLength {
		return field{text: art.title, tier: models.ExtractDocument}
	}
	if t := documentTitle(doc); len(t) >= minTitleLength {
		return field{text: t, tier: models.ExtractDocument}
	}

	return field{text: textutil.DomainTitle(pageURL), tier: models.ExtractDomainFallback}
}

// usable reports whether a stored selector can be applied at all.
func usable(sel string) (string, bool) {
	if strings.TrimSpace(sel) == "" {
		return "", false
	}
	clean, err := selector.Sanitize(sel)
	if err != nil {
		return "", false
	}
	return clean, true
}

func weakest(tiers ...string) string {
	out := models.ExtractSelector
	for _, t := range tiers {
		if tierRank[t] > tierRank[out] {
			out = t
		}
	}
	return out
}

func confidence(base float64, tiers ...string) float64 {
	c := base
	if c <= 0 || c > 1 {
		c = 1
	}
	for _, t := range tiers {
		if ceil, ok := tierCeiling[t]; ok && ceil < c {
			c = ceil
		}
	}
	return c
}

// stripNoise drops elements that never carry article text.
func stripNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript, template, iframe, svg").Remove()
}

// blockText returns the readable text of s, one paragraph per line pair when
// s is made of paragraphs, plus its outer HTML.
func blockText(s *goquery.Selection) (string, string) {
	if s.Length() == 0 {
		return "", ""
	}
	var parts []string
	s.Find("p, h2, h3, li, blockquote, pre").Each(func(_ int, el *goquery.Selection) {
		// nested blocks are covered by their parent
		if el.ParentsFiltered("p, li, blockquote, pre").Length() > 0 {
			return
		}
		if t := textutil.CleanText(el.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, "\n\n")
	if len(text) < len(textutil.CleanText(s.Text()))/2 {
		text = textutil.CleanText(s.Text())
	}
	html, err := goquery.OuterHtml(s)
	if err != nil {
		html = ""
	}
	return text, html
}
