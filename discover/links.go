package discover

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// linkSet accumulates de-duplicated external links in first-seen order.
type linkSet struct {
	pageURL string
	base    *url.URL
	links   []Link
	seen    map[string]struct{}
}

func newLinkSet(pageURL string) *linkSet {
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		base = nil
	}
	return &linkSet{
		pageURL: pageURL,
		base:    base,
		seen:    make(map[string]struct{}),
	}
}

// add merges links and returns how many were new.
func (ls *linkSet) add(links []Link) int {
	added := 0
	for _, l := range links {
		abs, ok := textutil.Resolve(ls.base, l.URL)
		if !ok || !textutil.IsExternal(ls.pageURL, abs) || isShareLink(abs) {
			continue
		}
		key, err := textutil.NormalizeURL(abs)
		if err != nil {
			continue
		}
		if _, dup := ls.seen[key]; dup {
			continue
		}
		ls.seen[key] = struct{}{}
		ls.links = append(ls.links, Link{URL: abs, Text: textutil.CleanText(l.Text)})
		added++
	}
	return added
}

// ExternalLinks filters links to de-duplicated absolute URLs whose host
// differs from pageURL's, preserving first-seen order.
func ExternalLinks(pageURL string, links []Link) []Link {
	ls := newLinkSet(pageURL)
	ls.add(links)
	return ls.links
}

// MergeLinks concatenates link lists, dropping later duplicates.
func MergeLinks(pageURL string, lists ...[]Link) []Link {
	ls := newLinkSet(pageURL)
	for _, l := range lists {
		ls.add(l)
	}
	return ls.links
}

// shareHosts and sharePaths identify social share and follow widgets.
var (
	shareHosts = []string{
		"facebook.com", "twitter.com", "x.com", "linkedin.com", "reddit.com",
		"pinterest.com", "tumblr.com", "t.me", "telegram.me", "whatsapp.com",
		"wa.me", "instagram.com", "youtube.com", "tiktok.com", "threads.net",
	}
	sharePaths = regexp.MustCompile(`(?i)/(share|sharer|intent|sharearticle|submit|pin/create)(\.php)?([/?]|$)`)
)

// isShareLink reports whether u is a social widget rather than content. Share
// endpoints are always dropped; profile pages on social hosts too.
func isShareLink(u string) bool {
	if sharePaths.MatchString(u) {
		return true
	}
	host := textutil.Host(u)
	for _, h := range shareHosts {
		if textutil.MatchesDomain(host, h) {
			return true
		}
	}
	return false
}

// RankByTopic stably moves links whose text or URL mentions words from hint
// to the front. An empty hint leaves the order unchanged.
func RankByTopic(links []Link, hint string) []Link {
	terms := topicTerms(hint)
	if len(terms) == 0 {
		return links
	}

	type scored struct {
		Link
		score int
	}
	ranked := make([]scored, len(links))
	for i, l := range links {
		hay := strings.ToLower(l.Text + " " + l.URL)
		s := 0
		for _, t := range terms {
			if strings.Contains(hay, t) {
				s++
			}
		}
		ranked[i] = scored{l, s}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]Link, len(ranked))
	for i, r := range ranked {
		out[i] = r.Link
	}
	return out
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "about": {}, "news": {},
}

func topicTerms(hint string) []string {
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(hint), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// URLs returns the URL of every link.
func URLs(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}
