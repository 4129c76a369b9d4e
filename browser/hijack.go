package browser

import (
	"net/url"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// challengeHosts serve interstitial challenges. Their requests are never
// blocked or the page can not clear.
var challengeHosts = []string{
	"challenges.cloudflare.com",
	"hcaptcha.com",
	"recaptcha.net",
	"google.com",
	"gstatic.com",
	"captcha-delivery.com",
	"ddos-guard.net",
	"perimeterx.net",
	"px-cdn.net",
}

// adHosts are ad and tracking networks blocked when BlockAds is set.
// Subdomains match.
var adHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"googletagservices.com",
	"connect.facebook.net",
	"adnxs.com",
	"adsrvr.org",
	"amazon-adsystem.com",
	"criteo.com",
	"criteo.net",
	"outbrain.com",
	"taboola.com",
	"moatads.com",
	"pubmatic.com",
	"rubiconproject.com",
	"scorecardresearch.com",
	"quantserve.com",
	"hotjar.com",
	"chartbeat.com",
	"chartbeat.net",
	"optimizely.com",
	"openx.net",
	"casalemedia.com",
	"demdex.net",
	"krxd.net",
	"bluekai.com",
	"sharethis.com",
	"addthis.com",
}

func matchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if textutil.MatchesDomain(host, p) {
			return true
		}
	}
	return false
}

// blockedRequests counts intercepted requests across all pages.
var blockedRequests atomic.Int64

// setupHijack installs a request interceptor on the page that blocks the
// configured resource types and, optionally, ad networks. Challenge vendors
// always pass. Returns nil when there is nothing to block; otherwise the
// router runs until Stop.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		host := ""
		if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
			host = u.Hostname()
		}

		if !matchesAny(host, challengeHosts) {
			_, byType := blocked[ctx.Request.Type()]
			if byType || (blockAds && matchesAny(host, adHosts)) {
				blockedRequests.Add(1)
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run blocks until Stop.
	go router.Run()

	return router
}

// BlockedRequests returns the number of requests blocked since start.
func BlockedRequests() int64 {
	return blockedRequests.Load()
}
