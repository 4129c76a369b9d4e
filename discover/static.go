package discover

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// StaticLinks returns every anchor in an HTML document, resolved against
// pageURL or the document's <base href>.
func StaticLinks(doc *goquery.Document, pageURL string) []Link {
	base, _ := url.Parse(pageURL)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if base != nil {
			if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
				href = u.String()
			}
		}
		text := a.Text()
		if strings.TrimSpace(text) == "" {
			text, _ = a.Attr("title")
		}
		links = append(links, Link{URL: href, Text: text})
	})
	return links
}

const staticTriggerSelector = "[hx-get],[hx-post],[data-hx-get],[data-hx-post],[data-url],[data-load-more],[data-next]," +
	"a[rel=next],.pagination a,.pager a,button,[role=button]"

var loadMoreText = regexp.MustCompile(`(?i)(load|show|view|see)\s+more|more\s+(stories|articles|news|posts|results)|^\s*more\s*$`)

// StaticTriggers finds dynamic-loading triggers in raw HTML without a
// browser. It is used to decide whether a live resolver pass is worthwhile.
func StaticTriggers(doc *goquery.Document) []models.DynamicTrigger {
	var raw []models.DynamicTrigger
	doc.Find(staticTriggerSelector).Each(func(i int, s *goquery.Selection) {
		endpoint := firstAttr(s, "hx-get", "data-hx-get", "hx-post", "data-hx-post", "data-url", "data-load-more", "data-next", "href")
		text := strings.TrimSpace(s.Text())
		tag := goquery.NodeName(s)

		// Plain buttons only count with load-more wording.
		if (tag == "button" || s.AttrOr("role", "") == "button") && endpoint == "" && !loadMoreText.MatchString(text) {
			return
		}

		event := firstAttr(s, "hx-trigger", "data-hx-trigger")
		if event == "" {
			event = "click"
		}
		raw = append(raw, models.DynamicTrigger{
			SelectorPath: pathOf(s),
			Endpoint:     endpoint,
			TargetRegion: firstAttr(s, "hx-target", "data-hx-target", "data-target", "aria-controls"),
			TriggerEvent: event,
			Text:         textutil.Truncate(text, 80),
		})
	})
	return classifyAll(raw)
}

// HasDynamicContent reports whether doc carries triggers worth activating
// in a browser: any container or item trigger.
func HasDynamicContent(doc *goquery.Document) bool {
	for _, t := range StaticTriggers(doc) {
		if t.Class == models.TriggerContainer || t.Class == models.TriggerItem {
			return true
		}
	}
	return false
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// pathOf builds a tag:nth-of-type chain from the root, matching what the
// browser surface generates.
func pathOf(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" && !strings.ContainsAny(id, " \t\"'#.:[]") {
		return "#" + id
	}
	var parts []string
	for n := s; n.Length() > 0; n = n.Parent() {
		name := goquery.NodeName(n)
		if name == "html" || name == "#document" || name == "" {
			break
		}
		idx := n.PrevAllFiltered(name).Length() + 1
		parts = append([]string{name + ":nth-of-type(" + strconv.Itoa(idx) + ")"}, parts...)
	}
	return "html > " + strings.Join(parts, " > ")
}
