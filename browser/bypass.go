package browser

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/engine"
)

// pageTextJS returns the title and the start of the visible body text.
const pageTextJS = `() => ({
	title: document.title || "",
	text: document.body ? document.body.innerText.slice(0, 5000) : ""
})`

type pageText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Bypass navigates page to target the way a person arriving from a search
// engine would, then waits for any interstitial challenge to clear.
//
// It returns false when challenge markers are still present after
// cfg.Timeout. A non-nil error means navigation itself failed.
func Bypass(ctx context.Context, page *rod.Page, target string, headers map[string]string, cfg config.BypassConfig) (bool, error) {
	// ── 1. Referer + extra headers ──
	extra := make(map[string]string, len(headers)+1)
	if u, err := url.Parse(target); err == nil {
		extra["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range headers {
		extra[k] = v
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extra)}).Call(page); err != nil {
		slog.Debug("bypass: set headers", "error", err)
	}

	// ── 2. Human delay ──
	delay := time.NewTimer(jitter(cfg.MinDelay, cfg.MaxDelay))
	select {
	case <-ctx.Done():
		delay.Stop()
		return false, ctx.Err()
	case <-delay.C:
	}

	// ── 3. Navigate ──
	p := page.Context(ctx)
	if err := p.Navigate(target); err != nil {
		return false, err
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// ── 4. Poll for challenge clearance ──
	return waitChallengeCleared(ctx, p, cfg.Timeout, cfg.PollInterval), nil
}

// waitChallengeCleared polls the page until no challenge markers remain or
// timeout elapses.
func waitChallengeCleared(ctx context.Context, page *rod.Page, timeout, interval time.Duration) bool {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	seen := false

	for {
		pt, err := readPageText(page)
		if err == nil && !engine.IsChallenge(pt.Title, pt.Text) {
			if seen {
				slog.Info("challenge cleared", "title", pt.Title)
			}
			return true
		}
		if err == nil {
			seen = true
		}

		if time.Now().After(deadline) {
			slog.Warn("challenge did not clear", "timeout", timeout, "error", err)
			return false
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

func readPageText(page *rod.Page) (pageText, error) {
	var pt pageText
	res, err := page.Eval(pageTextJS)
	if err != nil {
		return pt, err
	}
	err = res.Value.Unmarshal(&pt)
	return pt, err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
