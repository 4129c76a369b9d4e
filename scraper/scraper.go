// Package scraper wires the fetch, discovery, detection and extraction
// stages into the two caller-facing operations: DiscoverLinks for source
// pages and ExtractArticle for article pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/cleaner"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/discover"
	"github.com/anna-farino/RiskAi-sub010/engine"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/selector"
	"github.com/anna-farino/RiskAi-sub010/structure"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// Fetcher obtains a document, choosing the fetch method. engine.Dispatcher
// implements it.
type Fetcher interface {
	Dispatch(ctx context.Context, target models.FetchTarget) (*models.FetchResult, error)
}

// LiveFetcher is a Fetcher that can run a hook on the rendered page of an
// automation fetch. engine.Dispatcher implements it.
type LiveFetcher interface {
	DispatchLive(ctx context.Context, target models.FetchTarget, hook *engine.PageHook) (*models.FetchResult, error)
}

// Explorer opens a live page for the link resolver. browser.Fetcher
// implements it.
type Explorer interface {
	Explore(ctx context.Context, req *engine.FetchRequest, settle time.Duration, fn func(context.Context, discover.Surface) error) error
}

// Deps are the stage implementations a Scraper drives. Fetcher, Detector
// and Extractor are required.
type Deps struct {
	Fetcher   Fetcher
	Explorer  Explorer // nil disables dynamic link resolution
	Resolver  *discover.Resolver
	Detector  *structure.Detector
	Extractor *cleaner.Extractor
	Sink      Sink // nil logs through slog
}

// DiscoverOptions tune one DiscoverLinks call.
type DiscoverOptions struct {
	// TopicHint moves links mentioning these words to the front.
	TopicHint string
	// MaxLinks caps the result; zero uses the configured default.
	MaxLinks int
}

// Scraper is safe for concurrent use.
type Scraper struct {
	fetcher   Fetcher
	explorer  Explorer
	resolver  *discover.Resolver
	detector  *structure.Detector
	extractor *cleaner.Extractor
	sink      Sink
	cfg       config.DiscoverConfig
	startTime time.Time
}

// New creates a Scraper.
func New(cfg config.DiscoverConfig, d Deps) *Scraper {
	s := &Scraper{
		fetcher:   d.Fetcher,
		explorer:  d.Explorer,
		resolver:  d.Resolver,
		detector:  d.Detector,
		extractor: d.Extractor,
		sink:      d.Sink,
		cfg:       cfg,
		startTime: time.Now(),
	}
	if s.sink == nil {
		s.sink = LogSink{}
	}
	if s.resolver == nil {
		s.resolver = discover.NewResolver(cfg)
	}
	if s.detector != nil {
		s.detector.SetReporter(s.sink.Report)
	}
	return s
}

// Uptime returns how long the Scraper has existed.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// DiscoverLinks returns the external article links of a source page.
//
//  1. Fetch         – HTTP, escalating to automation at most once
//  2. Static links  – anchors in the fetched document
//  3. Dynamic links – only when the document has load triggers and a
//     browser is available; failures degrade to the static set. An
//     automation fetch resolves on the page it already rendered.
//  4. Merge, rank by topic hint, cap
func (s *Scraper) DiscoverLinks(ctx context.Context, sourceURL string, opts DiscoverOptions) ([]string, error) {
	if err := validateURL(sourceURL); err != nil {
		return nil, s.fail(err)
	}

	// ── 1. Fetch ──
	target := models.FetchTarget{
		URL:         sourceURL,
		Role:        models.RoleSource,
		ContextHint: opts.TopicHint,
	}
	var (
		dynamic []discover.Link
		live    bool
		res     *models.FetchResult
		err     error
	)
	if lf, ok := s.fetcher.(LiveFetcher); ok && s.explorer != nil {
		res, err = lf.DispatchLive(ctx, target, &engine.PageHook{
			Settle: s.cfg.SettleTime,
			Fn: func(ctx context.Context, snap *models.FetchResult, surface discover.Surface) error {
				live = true
				dynamic = s.resolveLive(ctx, snap, surface)
				return nil
			},
		})
	} else {
		res, err = s.fetcher.Dispatch(ctx, target)
	}
	if err != nil {
		return nil, s.fail(classify.Classify(classify.StepDispatch, err))
	}
	pageURL := firstNonEmpty(res.FinalURL, sourceURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, s.fail(classify.Classify(classify.StepDiscover, fmt.Errorf("scraper: parse source page: %w", err)))
	}

	// ── 2. Static links ──
	static := discover.StaticLinks(doc, pageURL)

	// ── 3. Dynamic links ──
	if !live && s.explorer != nil && discover.HasDynamicContent(doc) {
		dynamic = s.resolveDynamic(ctx, pageURL, opts.TopicHint)
	}

	// ── 4. Merge, rank, cap ──
	links := discover.RankByTopic(discover.MergeLinks(pageURL, static, dynamic), opts.TopicHint)
	limit := opts.MaxLinks
	if limit <= 0 {
		limit = s.cfg.MaxLinks
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	slog.Info("links discovered",
		"url", sourceURL,
		"method", res.Method,
		"escalated", res.Escalated,
		"static", len(static),
		"dynamic", len(dynamic),
		"returned", len(links),
	)
	return discover.URLs(links), nil
}

// resolveLive runs the resolver on the page an automation fetch rendered,
// when its snapshot shows load triggers.
func (s *Scraper) resolveLive(ctx context.Context, snap *models.FetchResult, surface discover.Surface) []discover.Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil || !discover.HasDynamicContent(doc) {
		return nil
	}
	r, err := s.resolver.Resolve(ctx, surface)
	return s.resolved(r, err, firstNonEmpty(snap.FinalURL, surface.URL(ctx)))
}

func (s *Scraper) resolveDynamic(ctx context.Context, pageURL, hint string) []discover.Link {
	var result *discover.Result
	req := &engine.FetchRequest{URL: pageURL, Role: models.RoleSource, ContextHint: hint}
	err := s.explorer.Explore(ctx, req, s.cfg.SettleTime, func(ctx context.Context, surface discover.Surface) error {
		r, err := s.resolver.Resolve(ctx, surface)
		result = r
		return err
	})
	return s.resolved(result, err, pageURL)
}

// resolved reports a resolver failure and every failed activation to the
// sink, then returns whatever links were collected.
func (s *Scraper) resolved(result *discover.Result, err error, pageURL string) []discover.Link {
	if err != nil {
		se := classify.Classify(classify.StepDiscover, err).WithContext("url", pageURL)
		s.sink.Report(se)
		slog.Warn("dynamic link resolution failed, using static links", "url", pageURL, "error", se.Error())
	}
	if result == nil {
		return nil
	}
	for _, a := range result.Attributions {
		if a.Err == "" {
			continue
		}
		se := models.NewKindError(models.KindPuppeteer, classify.StepDiscover, "trigger activation failed", errors.New(a.Err)).
			WithContext("url", pageURL).
			WithContext("trigger", a.Trigger.SelectorPath)
		se.Retryable = false
		s.sink.Report(se)
	}
	return result.Links
}

// ExtractArticle fetches an article page and extracts its fields. known,
// when valid, skips structure detection.
func (s *Scraper) ExtractArticle(ctx context.Context, articleURL string, known *models.SelectorSet) (*models.ExtractedArticle, error) {
	if err := validateURL(articleURL); err != nil {
		return nil, s.fail(err)
	}

	res, err := s.fetcher.Dispatch(ctx, models.FetchTarget{URL: articleURL, Role: models.RoleArticle})
	if err != nil {
		return nil, s.fail(classify.Classify(classify.StepDispatch, err))
	}
	pageURL := firstNonEmpty(res.FinalURL, articleURL)

	set := s.usableKnown(known)
	if set == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
		if err != nil {
			return nil, s.fail(classify.Classify(classify.StepStructure, fmt.Errorf("scraper: parse article: %w", err)))
		}
		set = s.detector.Detect(ctx, doc, res.HTML, pageURL)
	}

	article, err := s.extractor.Extract(res.HTML, pageURL, set)
	if err != nil {
		return nil, s.fail(classify.Classify(classify.StepExtract, err).WithContext("url", articleURL))
	}
	article.SourceURL = articleURL
	article.FetchMethod = res.Method

	slog.Info("article extracted",
		"url", articleURL,
		"method", res.Method,
		"escalated", res.Escalated,
		"selectors", set.Origin,
		"extraction", article.ExtractionMethod,
		"confidence", article.Confidence,
	)
	return article, nil
}

// ExtractBatch extracts every URL with at most concurrency in flight. A
// failed item is recorded and the rest continue. Results keep input order.
func (s *Scraper) ExtractBatch(ctx context.Context, urls []string, concurrency int, onItem func(models.BatchItem)) []models.BatchItem {
	if concurrency <= 0 {
		concurrency = 1
	}
	items := make([]models.BatchItem, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			item := models.BatchItem{URL: u}
			article, err := s.ExtractArticle(gctx, u, nil)
			if err != nil {
				item.Error = toScrapeError(err).ToDetail()
			} else {
				item.Article = article
			}
			items[i] = item
			if onItem != nil {
				mu.Lock()
				onItem(item)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// fail reports se and returns it as an error.
func (s *Scraper) fail(se *models.ScrapeError) error {
	s.sink.Report(se)
	return se
}

func validateURL(raw string) *models.ScrapeError {
	if _, err := textutil.NormalizeURL(raw); err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid url %q", raw), err)
	}
	return nil
}

// usableKnown returns a copy of known when both required selectors pass
// the sanitizer. Unsafe optional selectors are dropped and reported.
func (s *Scraper) usableKnown(known *models.SelectorSet) *models.SelectorSet {
	if known == nil || known.Validate() != nil {
		return nil
	}
	title, err := selector.Sanitize(known.TitleSelector)
	if err != nil {
		return nil
	}
	content, err := selector.Sanitize(known.ContentSelector)
	if err != nil {
		return nil
	}
	set := *known
	set.TitleSelector, set.ContentSelector = title, content
	set.AuthorSelector = s.optional("author", set.AuthorSelector)
	set.DateSelector = s.optional("date", set.DateSelector)
	if set.Origin == "" {
		set.Origin = models.OriginCached
	}
	if set.Confidence <= 0 {
		set.Confidence = structure.ConfidenceHeuristic
	}
	set.Clamp()
	return &set
}

func (s *Scraper) optional(field, raw string) string {
	sel, err := selector.Optional(raw)
	if err == nil {
		return sel
	}
	se := models.NewKindError(models.KindParsing, classify.StepStructure, "known "+field+" selector dropped", err).
		WithContext("selector", textutil.Truncate(raw, 80))
	se.Retryable = false
	s.sink.Report(se)
	return ""
}

func toScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return classify.Classify(classify.StepExtract, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
