package engine

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Marker is one piece of textual evidence of an anti-bot interstitial.
// Weight is summed across matches; a page is a challenge once the total
// reaches challengeThreshold.
type Marker struct {
	Pattern string
	Weight  int
}

const challengeThreshold = 3

// ChallengeMarkers are matched case-insensitively against the page title and
// body. Strong vendor fingerprints carry the full threshold on their own;
// generic phrases need corroboration.
var ChallengeMarkers = []Marker{
	{"checking your browser", 3},
	{"just a moment...", 3},
	{"cf-browser-verification", 3},
	{"cf_chl_opt", 3},
	{"challenge-platform", 3},
	{"cf-turnstile", 3},
	{"attention required! | cloudflare", 3},
	{"ddos-guard", 3},
	{"_incapsula_resource", 3},
	{"px-captcha", 3},
	{"captcha-delivery.com", 3},
	{"sucuri website firewall", 3},
	{"verify you are human", 3},
	{"are you a robot", 3},
	{"please enable javascript and cookies", 2},
	{"enable cookies", 1},
	{"ray id", 1},
	{"access denied", 1},
	{"security check", 1},
	{"captcha", 1},
	{"one more step", 1},
}

// Inspection is the verdict of DetectProtection.
type Inspection struct {
	Signature models.ProtectionSignature
	Reason    string
	Score     int
}

// ResponseInfo is the subset of an HTTP exchange that protection detection
// looks at.
type ResponseInfo struct {
	StatusCode int
	Body       []byte
	Redirects  int
	Looped     bool
}

// DetectProtection inspects a lightweight-fetch response for an anti-bot
// interstitial, a redirect loop, or a body too thin to be real content.
func DetectProtection(r ResponseInfo, maxRedirects, minBodyBytes int) Inspection {
	if r.Looped || (maxRedirects > 0 && r.Redirects > maxRedirects) {
		return Inspection{Signature: models.ProtectionRedirectLoop, Reason: "redirect-chain"}
	}

	if score := ChallengeScore(extractTitle(r.Body), string(r.Body)); score >= challengeThreshold {
		return Inspection{Signature: models.ProtectionChallenge, Reason: "challenge-markup", Score: score}
	}

	if r.StatusCode == 403 || r.StatusCode == 429 || r.StatusCode == 503 {
		return Inspection{Signature: models.ProtectionChallenge, Reason: "blocking-status"}
	}

	if minBodyBytes > 0 && len(r.Body) < minBodyBytes {
		return Inspection{Signature: models.ProtectionChallenge, Reason: "thin-body"}
	}

	if scriptShell(r.Body) {
		return Inspection{Signature: models.ProtectionChallenge, Reason: "script-shell"}
	}

	return Inspection{Signature: models.ProtectionNone}
}

// ChallengeScore sums the weights of markers found in title or body.
func ChallengeScore(title, body string) int {
	hay := strings.ToLower(title + "\n" + body)
	score := 0
	for _, m := range ChallengeMarkers {
		if strings.Contains(hay, m.Pattern) {
			score += m.Weight
		}
	}
	return score
}

// IsChallenge reports whether title/body text carries enough markers to be
// an interstitial check.
func IsChallenge(title, body string) bool {
	return ChallengeScore(title, body) >= challengeThreshold
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// scriptShell detects pages whose content only exists after JS runs
// (empty SPA roots, noscript warnings, script-heavy bodies with no text).
func scriptShell(body []byte) bool {
	text := extractVisibleText(body)
	if len(text) < 200 {
		return true
	}

	lower := strings.ToLower(string(body))
	for _, root := range []string{`<div id="root"></div>`, `<div id="app"></div>`, `<div id="__next"></div>`} {
		if strings.Contains(lower, root) {
			return true
		}
	}
	if reNoscript.MatchString(lower) {
		return true
	}
	return strings.Count(lower, "<script") > 10 && len(text) < 500
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
