// Package app assembles the scraper from configuration. The HTTP server
// and the CLI share it.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anna-farino/RiskAi-sub010/browser"
	"github.com/anna-farino/RiskAi-sub010/cache"
	"github.com/anna-farino/RiskAi-sub010/cleaner"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/engine"
	"github.com/anna-farino/RiskAi-sub010/llm"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/scraper"
	"github.com/anna-farino/RiskAi-sub010/structure"
	"github.com/anna-farino/RiskAi-sub010/webhook"
)

// App owns the long-lived resources behind a Scraper.
type App struct {
	Scraper *scraper.Scraper

	browser *browser.Browser
	pool    *browser.Pool
	cache   *cache.Cache
}

// New launches the browser and wires every stage.
func New(cfg *config.Config) (*App, error) {
	br, err := browser.Launch(cfg.Browser, cfg.Scraper)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	pool := br.NewPool()
	fetcher := browser.NewFetcher(pool, cfg.Scraper, cfg.Bypass)

	dispatcher := engine.NewDispatcher(
		engine.NewHTTPEngine(cfg.Engine),
		engine.NewBrowserEngine(fetcher.Fetch),
		engine.NewDomainMemory(cfg.Engine.MemoryTTL),
		cfg.Engine.ProtectedDomains,
		cfg.Scraper.NavigationTimeout,
	)

	ai, err := llm.New(cfg.Structure, &http.Client{Timeout: cfg.Structure.AITimeout})
	if err != nil {
		pool.Close()
		br.Close()
		return nil, fmt.Errorf("structure inference: %w", err)
	}
	if ai == nil {
		slog.Info("AI structure detection disabled, using cached and heuristic selectors")
	}

	selectors := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	sinks := scraper.MultiSink{scraper.LogSink{}}
	if cfg.Telemetry.WebhookURL != "" {
		sinks = append(sinks, webhook.NewSink(cfg.Telemetry.WebhookURL, cfg.Telemetry.WebhookSecret))
	}

	sc := scraper.New(cfg.Discover, scraper.Deps{
		Fetcher:   dispatcher,
		Explorer:  fetcher,
		Detector:  structure.NewDetector(ai, selectors, cfg.Structure, cfg.Extract.MinContentLength),
		Extractor: cleaner.NewExtractor(cfg.Extract),
		Sink:      sinks,
	})

	return &App{Scraper: sc, browser: br, pool: pool, cache: selectors}, nil
}

// PoolStats reports browser pool usage.
func (a *App) PoolStats() models.PoolStats {
	return a.pool.Stats()
}

// Close drains the pool and kills the browser.
func (a *App) Close() {
	a.cache.Close()
	a.pool.Close()
	a.browser.Close()
}
