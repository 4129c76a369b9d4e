// Package browser owns headless Chrome: the bounded session pool, stealth
// pages, the protection bypass, human-behavior simulation and the live DOM
// surface used by the link resolver.
package browser

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// Browser manages the global Chrome process. It is safe for concurrent use.
type Browser struct {
	rod        *rod.Browser
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
}

// Launch starts a headless browser with anti-automation flags.
func Launch(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Browser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1366,768")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	return &Browser{
		rod:        b,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}, nil
}

// NewPage opens a stealth tab with resource blocking installed. It satisfies
// PageFactory.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.rod.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}
	// Detach the creation context so the tab outlives this call.
	page = page.Context(context.Background())

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{Width: 1366, Height: 768, DeviceScaleFactor: 1}).Call(page); err != nil {
		slog.Debug("viewport override failed", "error", err)
	}

	return &RodPage{
		page:   page,
		router: setupHijack(page, b.scraperCfg.BlockedResourceTypes, b.scraperCfg.BlockAds),
	}, nil
}

// NewPool creates the session pool backed by this browser.
func (b *Browser) NewPool() *Pool {
	return NewPool(b.NewPage, b.browserCfg.PoolSize, b.browserCfg.HealthTimeout)
}

// Close kills the browser process.
func (b *Browser) Close() {
	slog.Info("closing browser")
	if err := b.rod.Close(); err != nil {
		slog.Warn("browser close", "error", err)
	}
}
