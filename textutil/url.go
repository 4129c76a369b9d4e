// Package textutil holds the URL and text helpers shared by every stage:
// normalization, host comparison, domain-derived titles, truncation checks
// and content fingerprints.
package textutil

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

// trackingParams are query keys stripped during normalization.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref_src": {},
}

// NormalizeURL canonicalizes an absolute http(s) URL so that equivalent
// links compare equal: lower-case scheme and host, no default port, no
// fragment, no tracking parameters, sorted query and no trailing slash
// (except for the root path).
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("textutil: not an http(s) URL")
	}
	if u.Host == "" {
		return "", errors.New("textutil: missing host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lk := strings.ToLower(key)
			if strings.HasPrefix(lk, "utm_") {
				q.Del(key)
				continue
			}
			if _, ok := trackingParams[lk]; ok {
				q.Del(key)
			}
		}
		u.RawQuery = encodeSorted(q)
	}

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Resolve turns href into an absolute http(s) URL relative to base.
// javascript:, mailto:, tel: and fragment-only links are rejected. A nil
// base accepts absolute links only.
func Resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// Host returns the lower-cased hostname of raw without a leading "www.".
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IsExternal reports whether link points to a different host than page.
func IsExternal(page, link string) bool {
	lh := Host(link)
	return lh != "" && lh != Host(page)
}

// MatchesDomain reports whether host equals pattern or is a subdomain of it.
func MatchesDomain(host, pattern string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	pattern = strings.TrimPrefix(strings.TrimPrefix(pattern, "*."), "www.")
	if pattern == "" {
		return false
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// DomainTitle derives a human-readable name from a URL's registrable
// domain, e.g. "https://www.dark-reading.com/x" -> "Dark Reading".
func DomainTitle(raw string) string {
	host := Host(raw)
	if host == "" {
		return "Untitled Article"
	}
	site := host
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		site = etld1
	}
	if suffix, _ := publicsuffix.PublicSuffix(site); suffix != "" && suffix != site {
		site = strings.TrimSuffix(site, "."+suffix)
	}

	words := strings.FieldsFunc(site, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	if len(words) == 0 {
		return "Untitled Article"
	}
	return strings.Join(words, " ")
}
