package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/selector"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// errUnusable marks an AI answer that parsed but cannot be applied.
var errUnusable = errors.New("unusable selectors")

// Detector produces a SelectorSet for a page. ai and cache may be nil.
type Detector struct {
	ai           Inferer
	cache        SelectorCache
	excerptBytes int
	aiTimeout    time.Duration
	minContent   int
	report       func(*models.ScrapeError)
}

// NewDetector creates a Detector.
func NewDetector(ai Inferer, cache SelectorCache, cfg config.StructureConfig, minContent int) *Detector {
	if minContent <= 0 {
		minContent = defaultMinContentChars
	}
	return &Detector{
		ai:           ai,
		cache:        cache,
		excerptBytes: cfg.ExcerptBytes,
		aiTimeout:    cfg.AITimeout,
		minContent:   minContent,
	}
}

// SetReporter installs a callback for the non-fatal failures the fallback
// chain absorbs.
func (d *Detector) SetReporter(fn func(*models.ScrapeError)) {
	d.report = fn
}

// Detect returns the selector set for the page. It never fails: when the
// cached and AI tiers are unavailable or unusable, heuristics answer.
func (d *Detector) Detect(ctx context.Context, doc *goquery.Document, rawHTML, pageURL string) *models.SelectorSet {
	domain := textutil.Host(pageURL)

	// ── 1. cached ──
	if set, ok := d.cached(ctx, doc, domain); ok {
		return set
	}

	// ── 2. ai ──
	if set, err := d.inferAI(ctx, doc, rawHTML, pageURL); err == nil {
		d.store(ctx, domain, *set)
		return set
	} else if !errors.Is(err, errNoAI) {
		se := classify.Classify(classify.StepStructureAI, err).WithContext("url", pageURL)
		slog.Info("ai selectors rejected, using heuristics", "url", pageURL, "error", se.Error())
		d.emit(se)
	}

	// ── 3. heuristic ──
	set := d.heuristic(doc)
	if set.Confidence >= ConfidenceHeuristic {
		d.store(ctx, domain, *set)
	}
	return set
}

func (d *Detector) cached(ctx context.Context, doc *goquery.Document, domain string) (*models.SelectorSet, bool) {
	if d.cache == nil || domain == "" {
		return nil, false
	}
	stored, ok := d.cache.Get(ctx, domain)
	if !ok || stored == nil {
		return nil, false
	}
	set := *stored
	if !selector.Valid(set.TitleSelector) || !selector.Valid(set.ContentSelector) {
		slog.Warn("cached selectors failed validation", "domain", domain)
		return nil, false
	}
	// A layout change makes cached selectors stale for this page.
	if selector.Text(doc, set.ContentSelector) == "" {
		slog.Debug("cached selectors do not match page", "domain", domain)
		return nil, false
	}
	set.AuthorSelector = d.optional(classify.StepStructure, "author", set.AuthorSelector)
	set.DateSelector = d.optional(classify.StepStructure, "date", set.DateSelector)
	set.Origin = models.OriginCached
	set.Clamp()
	return &set, true
}

var errNoAI = errors.New("no ai collaborator")

func (d *Detector) inferAI(ctx context.Context, doc *goquery.Document, rawHTML, pageURL string) (*models.SelectorSet, error) {
	if d.ai == nil {
		return nil, errNoAI
	}

	if d.aiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.aiTimeout)
		defer cancel()
	}

	raw, err := d.ai.InferSelectors(ctx, SelectorRequest{
		HTMLExcerpt: textutil.ExcerptHTML(rawHTML, d.excerptBytes),
		URL:         pageURL,
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, models.NewKindError(models.KindAI, classify.StepStructureAI, "empty answer", errUnusable)
	}

	title, err := selector.Sanitize(raw.TitleSelector)
	if err != nil {
		return nil, models.NewKindError(models.KindAI, classify.StepStructureAI, "title selector", err).
			WithContext("selector", textutil.Truncate(raw.TitleSelector, 80))
	}
	content, err := selector.Sanitize(raw.ContentSelector)
	if err != nil {
		return nil, models.NewKindError(models.KindAI, classify.StepStructureAI, "content selector", err).
			WithContext("selector", textutil.Truncate(raw.ContentSelector, 80))
	}
	author := d.optional(classify.StepStructureAI, "author", raw.AuthorSelector)
	date := d.optional(classify.StepStructureAI, "date", raw.DateSelector)

	if len(selector.Text(doc, content)) < d.minContent/4 {
		return nil, models.NewKindError(models.KindAI, classify.StepStructureAI,
			fmt.Sprintf("content selector %q matches no text", content), errUnusable)
	}

	confidence := ConfidenceAI
	if len(selector.Text(doc, title)) < minTitleLength {
		confidence = ConfidenceAIWeakTitle
	}

	return &models.SelectorSet{
		TitleSelector:   title,
		ContentSelector: content,
		AuthorSelector:  author,
		DateSelector:    date,
		Confidence:      confidence,
		Origin:          models.OriginAI,
	}, nil
}

// heuristic tries the fixed candidate lists. If nothing qualifies it still
// answers with the broadest selectors at reduced confidence.
func (d *Detector) heuristic(doc *goquery.Document) *models.SelectorSet {
	set := &models.SelectorSet{Origin: models.OriginHeuristic, Confidence: ConfidenceHeuristic}

	title, _ := selector.First(doc, selector.TitleCandidates, func(s string) bool { return len(s) >= minTitleLength })
	content, _ := selector.First(doc, selector.ContentCandidates, func(s string) bool { return len(s) >= d.minContent })
	set.AuthorSelector, _ = selector.First(doc, selector.AuthorCandidates, plausibleAuthor)
	set.DateSelector, _ = selector.First(doc, selector.DateCandidates, func(s string) bool { return len(s) >= 4 })

	if title == "" {
		title = "title"
		set.Confidence = ConfidenceLastResort
	}
	if content == "" {
		content = "body"
		set.Confidence = ConfidenceLastResort
	}
	set.TitleSelector, set.ContentSelector = title, content
	return set
}

func plausibleAuthor(s string) bool {
	return len(s) >= 2 && len(s) <= 100
}

func (d *Detector) store(ctx context.Context, domain string, set models.SelectorSet) {
	if d.cache == nil || domain == "" {
		return
	}
	d.cache.Set(ctx, domain, set)
}

// optional sanitizes an optional field selector. A rejected one is dropped
// and reported; the rest of the set stays usable.
func (d *Detector) optional(step, field, raw string) string {
	sel, err := selector.Optional(raw)
	if err == nil {
		return sel
	}
	slog.Debug("optional selector dropped", "field", field, "selector", textutil.Truncate(raw, 80), "error", err)
	se := models.NewKindError(models.KindParsing, step, field+" selector dropped", err).
		WithContext("selector", textutil.Truncate(raw, 80))
	se.Retryable = false
	d.emit(se)
	return ""
}

func (d *Detector) emit(se *models.ScrapeError) {
	if d.report != nil {
		d.report(se)
	}
}
