package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-farino/RiskAi-sub010/cleaner"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/discover"
	"github.com/anna-farino/RiskAi-sub010/engine"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/structure"
)

// ── fakes ────────────────────────────────────────────────────────────

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls int
}

func (f *fakeFetcher) Dispatch(_ context.Context, t models.FetchTarget) (*models.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[t.URL]; err != nil {
		return nil, err
	}
	html, ok := f.pages[t.URL]
	if !ok {
		return nil, models.NewKindError(models.KindNetwork, "fetch.http", "HTTP 404", nil)
	}
	return &models.FetchResult{HTML: html, FinalURL: t.URL, StatusCode: 200, Method: models.MethodHTTP, Protection: models.ProtectionNone}, nil
}

// escalatingFetcher answers every source with a browser render, running the
// page hook on the surface it rendered.
type escalatingFetcher struct {
	fakeFetcher
	surface     func() discover.Surface
	navigations atomic.Int32
}

func (f *escalatingFetcher) DispatchLive(ctx context.Context, t models.FetchTarget, hook *engine.PageHook) (*models.FetchResult, error) {
	res, err := f.Dispatch(ctx, t)
	if err != nil {
		return nil, err
	}
	f.navigations.Add(1)
	res.Method, res.Escalated = models.MethodAutomation, true
	if hook != nil {
		if err := hook.Fn(ctx, res, f.surface()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// fakeSurface reveals links when a trigger is activated.
type fakeSurface struct {
	url      string
	links    []discover.Link
	triggers []models.DynamicTrigger
	reveals  map[string][]discover.Link
}

func (s *fakeSurface) URL(context.Context) string { return s.url }

func (s *fakeSurface) DetectTriggers(context.Context) ([]models.DynamicTrigger, error) {
	return s.triggers, nil
}

func (s *fakeSurface) Activate(_ context.Context, t models.DynamicTrigger) error {
	s.links = append(s.links, s.reveals[t.SelectorPath]...)
	return nil
}

func (s *fakeSurface) Links(context.Context) ([]discover.Link, error) {
	return append([]discover.Link(nil), s.links...), nil
}

type fakeExplorer struct {
	newSurface func() discover.Surface
	err        error
	calls      atomic.Int32
}

func (e *fakeExplorer) Explore(ctx context.Context, _ *engine.FetchRequest, _ time.Duration, fn func(context.Context, discover.Surface) error) error {
	e.calls.Add(1)
	if e.err != nil {
		return e.err
	}
	return fn(ctx, e.newSurface())
}

type captureSink struct {
	mu   sync.Mutex
	errs []*models.ScrapeError
}

func (c *captureSink) Report(se *models.ScrapeError) {
	c.mu.Lock()
	c.errs = append(c.errs, se)
	c.mu.Unlock()
}

func (c *captureSink) kinds() []models.ErrorKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.ErrorKind
	for _, se := range c.errs {
		out = append(out, se.Kind)
	}
	return out
}

type fakeInferer struct {
	answer *structure.RawSelectors
	calls  atomic.Int32
}

func (f *fakeInferer) InferSelectors(context.Context, structure.SelectorRequest) (*structure.RawSelectors, error) {
	f.calls.Add(1)
	return f.answer, nil
}

func discoverCfg() config.DiscoverConfig {
	return config.DiscoverConfig{
		MaxContainerTriggers: 5,
		MaxTotalTriggers:     50,
		PaginationThreshold:  20,
		MaxLinks:             200,
	}
}

func newTestScraper(f Fetcher, ex Explorer, ai structure.Inferer, sink Sink) *Scraper {
	d := Deps{
		Fetcher:   f,
		Detector:  structure.NewDetector(ai, nil, config.StructureConfig{ExcerptBytes: 30000, AITimeout: time.Second}, 200),
		Extractor: cleaner.NewExtractor(config.ExtractConfig{MinParagraphLength: 80, MinContentLength: 200}),
		Sink:      sink,
	}
	if ex != nil {
		d.Explorer = ex
	}
	return New(discoverCfg(), d)
}

// ── pages ────────────────────────────────────────────────────────────

const sourceURL = "https://news.example.com/security"

var sourcePage = `<html><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<div id="feed" hx-get="/partials/latest-stories" hx-trigger="load"></div>
</body></html>`

func revealedLinks() []discover.Link {
	var out []discover.Link
	for i := range 10 {
		out = append(out, discover.Link{URL: fmt.Sprintf("https://outlet%d.example.org/story/%d", i, i), Text: fmt.Sprintf("Story %d", i)})
	}
	// duplicates, internal and share links are dropped
	out = append(out,
		discover.Link{URL: "https://outlet0.example.org/story/0#comments"},
		discover.Link{URL: "/internal/story"},
		discover.Link{URL: "https://twitter.com/intent/tweet?url=x"},
	)
	return out
}

func containerRevealSurface() discover.Surface {
	return &fakeSurface{
		url: sourceURL,
		links: []discover.Link{
			{URL: "https://news.example.com/"},
			{URL: "https://news.example.com/about"},
		},
		triggers: []models.DynamicTrigger{{
			SelectorPath: "#feed",
			Endpoint:     "/partials/latest-stories",
			TriggerEvent: "load",
		}},
		reveals: map[string][]discover.Link{"#feed": revealedLinks()},
	}
}

const articleURL = "https://blog.example.net/2024/05/vpn-flaw"

var articlePage = `<html><head><title>VPN flaw | Example Blog</title></head><body>
<article><h1>Critical VPN flaw exploited in the wild</h1>` +
	strings.Repeat("<p>Attackers are chaining two bugs in the appliance firmware to gain a foothold inside networks.</p>", 4) +
	`</article></body></html>`

// ── DiscoverLinks ────────────────────────────────────────────────────

// A container trigger revealing 10 external links yields exactly those 10.
func TestDiscoverLinks_ContainerRevealsLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{sourceURL: sourcePage}}
	ex := &fakeExplorer{newSurface: containerRevealSurface}
	s := newTestScraper(f, ex, nil, &captureSink{})

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{})
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, u := range got {
		assert.Equal(t, fmt.Sprintf("https://outlet%d.example.org/story/%d", i, i), u)
	}
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestDiscoverLinks_Idempotent(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{sourceURL: sourcePage}}
	s := newTestScraper(f, &fakeExplorer{newSurface: containerRevealSurface}, nil, &captureSink{})

	first, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{TopicHint: "story"})
	require.NoError(t, err)
	second, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{TopicHint: "story"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiscoverLinks_StaticOnly(t *testing.T) {
	page := `<html><body>
<a href="https://a.example.org/x">Ransomware gang leaks data</a>
<a href="https://b.example.org/y">Quarterly earnings</a>
<a href="/local">Local</a>
<a href="https://a.example.org/x?utm_source=feed">dup</a>
</body></html>`
	f := &fakeFetcher{pages: map[string]string{sourceURL: page}}
	ex := &fakeExplorer{newSurface: containerRevealSurface}
	s := newTestScraper(f, ex, nil, &captureSink{})

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{TopicHint: "earnings"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example.org/y", "https://a.example.org/x"}, got)
	assert.Equal(t, int32(0), ex.calls.Load(), "no dynamic triggers, no browser")
}

func TestDiscoverLinks_MaxLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{sourceURL: sourcePage}}
	s := newTestScraper(f, &fakeExplorer{newSurface: containerRevealSurface}, nil, &captureSink{})

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{MaxLinks: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestDiscoverLinks_ExplorerFailureDegrades(t *testing.T) {
	page := sourcePage + `<a href="https://static.example.org/a">static</a>`
	f := &fakeFetcher{pages: map[string]string{sourceURL: page}}
	sink := &captureSink{}
	ex := &fakeExplorer{err: models.NewKindError(models.KindPuppeteer, "fetch.browser", "target closed", nil)}
	s := newTestScraper(f, ex, nil, sink)

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://static.example.org/a"}, got)
	assert.Equal(t, []models.ErrorKind{models.KindPuppeteer}, sink.kinds())
}

func TestDiscoverLinks_NoBrowser(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{sourceURL: sourcePage}}
	s := newTestScraper(f, nil, nil, &captureSink{})

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// A source that escalates to automation is resolved on the page the
// escalation rendered, not navigated a second time.
func TestDiscoverLinks_EscalatedSourceNavigatesOnce(t *testing.T) {
	f := &escalatingFetcher{
		fakeFetcher: fakeFetcher{pages: map[string]string{sourceURL: sourcePage}},
		surface:     containerRevealSurface,
	}
	ex := &fakeExplorer{newSurface: containerRevealSurface}
	s := newTestScraper(f, ex, nil, &captureSink{})

	got, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Equal(t, int32(1), f.navigations.Load())
	assert.Zero(t, ex.calls.Load())
}

func TestDiscoverLinks_InvalidURL(t *testing.T) {
	f := &fakeFetcher{}
	sink := &captureSink{}
	s := newTestScraper(f, nil, nil, sink)

	_, err := s.DiscoverLinks(context.Background(), "ftp://example.com/x", DiscoverOptions{})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
	assert.Equal(t, 0, f.calls)
	assert.Len(t, sink.kinds(), 1)
}

func TestDiscoverLinks_FetchError(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{sourceURL: errors.New("dial tcp: connection refused")}}
	sink := &captureSink{}
	s := newTestScraper(f, nil, nil, sink)

	_, err := s.DiscoverLinks(context.Background(), sourceURL, DiscoverOptions{})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "dispatch", se.Step)
	assert.Len(t, sink.kinds(), 1)
}

// ── ExtractArticle ───────────────────────────────────────────────────

// An AI title selector of "null" ends in heuristic selectors, and the
// rejection is reported as an ai error.
func TestExtractArticle_NullAITitleUsesHeuristics(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{articleURL: articlePage}}
	ai := &fakeInferer{answer: &structure.RawSelectors{TitleSelector: "null", ContentSelector: "article"}}
	sink := &captureSink{}
	s := newTestScraper(f, nil, ai, sink)

	got, err := s.ExtractArticle(context.Background(), articleURL, nil)
	require.NoError(t, err)
	require.NotNil(t, got.Selectors)
	assert.Equal(t, models.OriginHeuristic, got.Selectors.Origin)
	assert.Equal(t, "Critical VPN flaw exploited in the wild", got.Title)
	assert.Equal(t, models.ExtractSelector, got.ExtractionMethod)
	assert.Equal(t, models.MethodHTTP, got.FetchMethod)
	assert.Equal(t, articleURL, got.SourceURL)
	assert.Equal(t, []models.ErrorKind{models.KindAI}, sink.kinds())
}

func TestExtractArticle_KnownSelectorsSkipDetection(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{articleURL: articlePage}}
	ai := &fakeInferer{answer: &structure.RawSelectors{TitleSelector: "h1", ContentSelector: "article"}}
	s := newTestScraper(f, nil, ai, &captureSink{})

	known := &models.SelectorSet{TitleSelector: "article h1", ContentSelector: "article", Confidence: 0.8}
	got, err := s.ExtractArticle(context.Background(), articleURL, known)
	require.NoError(t, err)
	assert.Equal(t, int32(0), ai.calls.Load())
	assert.Equal(t, models.OriginCached, got.Selectors.Origin)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestExtractArticle_UnsafeKnownSelectorsIgnored(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{articleURL: articlePage}}
	s := newTestScraper(f, nil, nil, &captureSink{})

	known := &models.SelectorSet{TitleSelector: "undefined", ContentSelector: "article"}
	got, err := s.ExtractArticle(context.Background(), articleURL, known)
	require.NoError(t, err)
	assert.Equal(t, models.OriginHeuristic, got.Selectors.Origin)
}

func TestExtractArticle_UnsafeKnownOptionalReported(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{articleURL: articlePage}}
	sink := &captureSink{}
	s := newTestScraper(f, nil, nil, sink)

	known := &models.SelectorSet{TitleSelector: "h1", ContentSelector: "article", AuthorSelector: "javascript:alert(1)"}
	got, err := s.ExtractArticle(context.Background(), articleURL, known)
	require.NoError(t, err)
	assert.Equal(t, models.OriginCached, got.Selectors.Origin)
	assert.Empty(t, got.Selectors.AuthorSelector)
	assert.Equal(t, []models.ErrorKind{models.KindParsing}, sink.kinds())
}

func TestExtractArticle_EmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{articleURL: `<html><body></body></html>`}}
	sink := &captureSink{}
	s := newTestScraper(f, nil, nil, sink)

	got, err := s.ExtractArticle(context.Background(), articleURL, nil)
	assert.Nil(t, got)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.KindParsing, se.Kind)
	assert.Contains(t, sink.kinds(), models.KindParsing)
}

// A challenge page escalates to automation exactly once, even when the
// automated page still shows the challenge.
func TestExtractArticle_ChallengeEscalatesOnce(t *testing.T) {
	challenge := &models.FetchResult{
		HTML:       `<html><head><title>Just a moment...</title></head><body>Checking your browser before accessing. cf-chl</body></html>`,
		StatusCode: 403,
		Method:     models.MethodHTTP,
		Protection: models.ProtectionChallenge,
	}
	light := &scriptedEngine{name: "http", result: challenge}
	heavy := &scriptedEngine{name: "automation", result: &models.FetchResult{HTML: challenge.HTML, Protection: models.ProtectionChallenge}}
	d := engine.NewDispatcher(light, heavy, nil, nil, time.Second)
	s := newTestScraper(d, nil, nil, &captureSink{})

	got, err := s.ExtractArticle(context.Background(), articleURL, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MethodAutomation, got.FetchMethod)
	assert.Equal(t, int32(1), light.calls.Load())
	assert.Equal(t, int32(1), heavy.calls.Load())
}

type scriptedEngine struct {
	name   string
	result *models.FetchResult
	calls  atomic.Int32
}

func (e *scriptedEngine) Name() string { return e.name }

func (e *scriptedEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*models.FetchResult, error) {
	e.calls.Add(1)
	r := *e.result
	r.FinalURL = req.URL
	return &r, nil
}

// ── ExtractBatch ─────────────────────────────────────────────────────

func TestExtractBatch_SkipsFailures(t *testing.T) {
	other := "https://blog.example.net/2024/06/other"
	f := &fakeFetcher{pages: map[string]string{articleURL: articlePage, other: articlePage}}
	s := newTestScraper(f, nil, nil, &captureSink{})

	var seen atomic.Int32
	urls := []string{articleURL, "https://blog.example.net/missing", other}
	items := s.ExtractBatch(context.Background(), urls, 2, func(models.BatchItem) { seen.Add(1) })

	require.Len(t, items, 3)
	assert.Equal(t, int32(3), seen.Load())
	for i, u := range urls {
		assert.Equal(t, u, items[i].URL)
	}
	assert.NotNil(t, items[0].Article)
	assert.Nil(t, items[1].Article)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, string(models.KindNetwork), items[1].Error.Kind)
	assert.NotNil(t, items[2].Article)
}
