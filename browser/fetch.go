package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/engine"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// PageFunc works on a page that has been navigated and cleared of any
// challenge.
type PageFunc func(ctx context.Context, page *rod.Page) error

type visitFunc func(ctx context.Context, l *Lease, req *engine.FetchRequest, fn PageFunc) error

// Fetcher loads pages through the session pool.
type Fetcher struct {
	pool       *Pool
	scraperCfg config.ScraperConfig
	bypassCfg  config.BypassConfig
	visit      visitFunc
}

// NewFetcher creates a Fetcher that leases pages from pool.
func NewFetcher(pool *Pool, scraperCfg config.ScraperConfig, bypassCfg config.BypassConfig) *Fetcher {
	f := &Fetcher{
		pool:       pool,
		scraperCfg: scraperCfg,
		bypassCfg:  bypassCfg,
	}
	f.visit = f.visitRod
	return f
}

// Pool returns the session pool.
func (f *Fetcher) Pool() *Pool { return f.pool }

// Fetch renders req.URL and returns the resulting document. It satisfies
// engine.BrowserFetchFunc. req.Live, when set, runs on the same page after
// the snapshot.
func (f *Fetcher) Fetch(ctx context.Context, req *engine.FetchRequest) (*models.FetchResult, error) {
	var result *models.FetchResult
	err := f.Visit(ctx, req, func(ctx context.Context, page *rod.Page) error {
		r, err := snapshot(page, req.URL)
		if err != nil {
			return err
		}
		result = r
		if req.Live == nil || req.Live.Fn == nil {
			return nil
		}
		return req.Live.Fn(ctx, r, NewSurface(page, req.Live.Settle))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Visit leases a page, navigates it through the protection bypass and runs
// fn. An automation failure destroys the lease and is retried once with a
// fresh one; anything else is returned as is.
func (f *Fetcher) Visit(ctx context.Context, req *engine.FetchRequest, fn PageFunc) error {
	timeout := req.Timeout
	if timeout <= 0 || timeout > f.scraperCfg.DefaultTimeout {
		timeout = f.scraperCfg.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var se *models.ScrapeError
	for attempt := 1; attempt <= 2; attempt++ {
		err := f.pool.With(ctx, func(l *Lease) error {
			return f.visit(ctx, l, req, fn)
		})
		if err == nil {
			return nil
		}

		se = classify.Classify(classify.StepFetchBrowser, err)
		if se.Kind != models.KindPuppeteer || !se.Retryable || ctx.Err() != nil {
			break
		}
		if attempt == 1 {
			slog.Info("automation failed, retrying with a fresh page",
				"url", req.URL, "step", se.Step, "error", se.Message)
		}
	}
	return se.WithContext("url", req.URL)
}

// visitRod is the production visit.
//
//  1. Bind context          – every rod call below honors the deadline
//  2. Bypass                – referer, human delay, navigate, challenge poll
//  3. Human signals         – best effort
//  4. Caller work
func (f *Fetcher) visitRod(ctx context.Context, l *Lease, req *engine.FetchRequest, fn PageFunc) error {
	// ── 1. Bind context ──
	page, err := rodPageOf(l)
	if err != nil {
		return models.NewKindError(models.KindPuppeteer, classify.StepPool, "unexpected page type", err)
	}
	nav := f.scraperCfg.NavigationTimeout
	if nav <= 0 {
		nav = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, nav+f.bypassCfg.Timeout+f.bypassCfg.MaxDelay)
	defer cancel()

	// ── 2. Bypass ──
	cleared, err := Bypass(navCtx, page, req.URL, req.Headers, f.bypassCfg)
	if err != nil {
		return classify.Classify(classify.StepFetchBrowser, err)
	}
	if !cleared {
		se := models.NewScrapeError(models.ErrCodeChallenge, "challenge did not clear", nil)
		se.Step = classify.StepBypass
		return se
	}

	p := page.Context(ctx)

	// ── 3. Human signals ──
	if f.scraperCfg.SimulateHuman {
		Simulate(ctx, p)
	}

	// ── 4. Caller work ──
	if fn == nil {
		return nil
	}
	return fn(ctx, p)
}

// snapshot captures the rendered document.
func snapshot(p *rod.Page, requested string) (*models.FetchResult, error) {
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, classify.Classify(classify.StepFetchBrowser, err)
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = requested
	}

	return &models.FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		FinalURL:   finalURL,
		StatusCode: statusCode,
		Method:     models.MethodAutomation,
		Protection: models.ProtectionNone,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
