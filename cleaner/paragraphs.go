package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// Signal weights for scoring the container around a paragraph.
const (
	wTextDensity   = 3.0
	wLinkDensity   = -2.0
	wTagWeight     = 1.5
	wClassIDWeight = 1.0
	wTextLength    = 0.5
)

// duplicateBits is the simhash distance under which two paragraphs count as
// the same text.
const duplicateBits = 3

var positiveClassIDPatterns = []string{
	"content", "article", "post", "entry", "body", "main", "text", "story",
}

var negativeClassIDPatterns = []string{
	"sidebar", "widget", "nav", "menu", "comment", "footer",
	"header", "banner", "popup", "modal", "cookie", "social", "share",
	"related", "recommend", "promo", "newsletter", "advert",
}

var noisePhrases = []string{
	"subscribe", "newsletter", "advertisement", "cookie",
	"privacy policy", "terms of service", "follow us",
	"share this", "related articles", "click here", "sign up",
	"log in", "contact us", "trending now", "most popular",
	"you might also like", "all rights reserved",
}

// aggregateParagraphs joins every paragraph-like block that reads as
// article prose. Blocks inside page chrome, near-duplicates and short or
// noisy lines are skipped.
func aggregateParagraphs(doc *goquery.Document, minLen int) (string, string) {
	var (
		texts  []string
		blocks []string
		seen   []uint64
	)

	doc.Find("p, blockquote, pre").Each(func(_ int, el *goquery.Selection) {
		if el.ParentsFiltered("nav, footer, aside, header, form, figcaption").Length() > 0 {
			return
		}
		if inChrome(el) {
			return
		}
		text := textutil.CleanText(el.Text())
		if !validParagraph(text, minLen) {
			return
		}
		fp := textutil.Fingerprint(text)
		for _, s := range seen {
			if textutil.Similar(fp, s, duplicateBits) {
				return
			}
		}
		seen = append(seen, fp)
		texts = append(texts, text)
		if html, err := goquery.OuterHtml(el); err == nil {
			blocks = append(blocks, html)
		}
	})
	return strings.Join(texts, "\n\n"), strings.Join(blocks, "\n")
}

// inChrome reports whether el sits in a container that scores as
// boilerplate: a negative class/id on any ancestor, or a negative overall
// score on its direct parent.
func inChrome(el *goquery.Selection) bool {
	chrome := el.ParentsUntil("body").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return classIDWeight(s) < 0
	})
	if chrome.Length() > 0 {
		return true
	}
	parent := el.Parent()
	return parent.Length() > 0 && scoreElement(parent) < 0
}

// validParagraph rejects navigation crumbs, shouting headers and
// boilerplate.
func validParagraph(text string, minLen int) bool {
	if len(text) < minLen || len(text) > 5000 {
		return false
	}
	if len(strings.Fields(text)) < 8 {
		return false
	}
	upper := 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	if float64(upper)/float64(len(text)) > 0.5 {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range noisePhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// scoreElement weighs a container by text density, link density, semantic
// tag and class/id signals. Negative scores mark page chrome.
func scoreElement(el *goquery.Selection) float64 {
	fullHTML, err := goquery.OuterHtml(el)
	if err != nil {
		return 0
	}

	text := strings.TrimSpace(el.Text())
	textLen := len(text)
	totalLen := len(fullHTML)

	textDensity := 0.0
	if totalLen > 0 {
		textDensity = float64(textLen) / float64(totalLen)
	}

	linkTextLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkTextLen) / float64(textLen)
	}

	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		tagWeight(el)*wTagWeight +
		classIDWeight(el)*wClassIDWeight +
		math.Log10(float64(textLen)+1)*wTextLength
}

func tagWeight(el *goquery.Selection) float64 {
	switch goquery.NodeName(el) {
	case "article", "main", "section":
		return 5.0
	case "nav", "footer", "aside", "header":
		return -5.0
	default:
		return 0.0
	}
}

// classIDWeight counts at most one positive and one negative hit.
func classIDWeight(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	combined := strings.ToLower(class + " " + id)

	score := 0.0
	for _, pat := range positiveClassIDPatterns {
		if strings.Contains(combined, pat) {
			score += 3.0
			break
		}
	}
	for _, pat := range negativeClassIDPatterns {
		if strings.Contains(combined, pat) {
			score -= 3.0
			break
		}
	}
	return score
}
