package discover

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// Attribution records how many new external links one activation produced.
type Attribution struct {
	Trigger  models.DynamicTrigger `json:"trigger"`
	NewLinks int                   `json:"new_links"`
	Err      string                `json:"error,omitempty"`
}

// Result is the outcome of one resolver run.
type Result struct {
	Links        []Link        `json:"links"`
	Activated    int           `json:"activated"`
	Attributions []Attribution `json:"attributions,omitempty"`
}

// Resolver runs the trigger state machine over a single navigated page.
// A Resolver is stateless between runs and safe for concurrent use.
type Resolver struct {
	cfg config.DiscoverConfig
}

// NewResolver creates a Resolver with the given budgets.
func NewResolver(cfg config.DiscoverConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// run holds the state of one Resolve call.
type run struct {
	s   Surface
	cfg config.DiscoverConfig
	*linkSet

	done      map[string]struct{}
	activated int
	throttle  *rate.Limiter
	result    *Result
}

// Resolve collects external links from s.
//
//  1. Detect and classify triggers
//  2. Activate containers (bounded)
//  3. Re-detect once
//  4. Activate items within the total budget, throttled
//  5. Activate pagination, then filters, while links are scarce
//
// Triggers revealed after the re-detect pass are never chased. Activation
// failures are recorded and skipped.
func (r *Resolver) Resolve(ctx context.Context, s Surface) (*Result, error) {
	pageURL := s.URL(ctx)
	st := &run{
		s:       s,
		cfg:     r.cfg,
		linkSet: newLinkSet(pageURL),
		done:    make(map[string]struct{}),
		result:  &Result{},
	}
	if r.cfg.ThrottleEvery > 0 && r.cfg.ThrottlePause > 0 {
		st.throttle = rate.NewLimiter(rate.Every(r.cfg.ThrottlePause), 1)
		st.throttle.Allow()
	}

	if _, err := st.collect(ctx); err != nil {
		return nil, err
	}

	// ── 1. Detect ──
	triggers, err := st.detect(ctx)
	if err != nil {
		slog.Debug("trigger detection failed, returning static links", "url", pageURL, "error", err)
		return st.finish(), nil
	}

	// ── 2. Containers ──
	attempts, revealed := 0, false
	for _, t := range ofClass(triggers, models.TriggerContainer) {
		if attempts >= r.cfg.MaxContainerTriggers || !st.budget() || ctx.Err() != nil {
			break
		}
		attempted, ok := st.fire(ctx, t)
		if attempted {
			attempts++
		}
		revealed = revealed || ok
	}
	if ctx.Err() != nil {
		return st.finish(), nil
	}

	// ── 3. Re-detect ──
	if revealed {
		if again, err := st.detect(ctx); err == nil {
			triggers = again
		}
	}

	// ── 4. Items ──
	for _, t := range ofClass(triggers, models.TriggerItem) {
		if !st.budget() || ctx.Err() != nil {
			break
		}
		st.fire(ctx, t)
	}

	// ── 5. Pagination, then filters ──
	for _, class := range []models.TriggerClass{models.TriggerPagination, models.TriggerFilter} {
		for _, t := range ofClass(triggers, class) {
			if len(st.links) >= r.cfg.PaginationThreshold || !st.budget() || ctx.Err() != nil {
				break
			}
			st.fire(ctx, t)
		}
	}

	return st.finish(), nil
}

func (st *run) detect(ctx context.Context) ([]models.DynamicTrigger, error) {
	raw, err := st.s.DetectTriggers(ctx)
	if err != nil {
		return nil, err
	}
	ts := classifyAll(raw)
	slog.Debug("triggers detected", "count", len(ts))
	return ts, nil
}

func (st *run) budget() bool {
	return st.cfg.MaxTotalTriggers <= 0 || st.activated < st.cfg.MaxTotalTriggers
}

// fire activates t unless it already ran, then attributes new links to it.
// attempted is true once Activate was called, whatever its outcome.
func (st *run) fire(ctx context.Context, t models.DynamicTrigger) (attempted, ok bool) {
	if _, seen := st.done[t.SelectorPath]; seen {
		return false, false
	}
	st.done[t.SelectorPath] = struct{}{}

	if err := st.pace(ctx); err != nil {
		return false, false
	}

	st.activated++
	att := Attribution{Trigger: t}
	if err := st.s.Activate(ctx, t); err != nil {
		slog.Debug("trigger activation failed", "selector", t.SelectorPath, "class", t.Class, "error", err)
		att.Err = err.Error()
		st.result.Attributions = append(st.result.Attributions, att)
		return true, false
	}

	added, err := st.collect(ctx)
	if err != nil {
		att.Err = err.Error()
	}
	att.NewLinks = added
	st.result.Attributions = append(st.result.Attributions, att)
	slog.Debug("trigger activated", "selector", t.SelectorPath, "class", t.Class, "new_links", added)
	return true, true
}

// pace waits for the throttle before every ThrottleEvery-th activation
// after the first batch.
func (st *run) pace(ctx context.Context) error {
	if st.throttle == nil || st.activated == 0 || st.activated%st.cfg.ThrottleEvery != 0 {
		return nil
	}
	start := time.Now()
	err := st.throttle.Wait(ctx)
	slog.Debug("trigger throttle", "activated", st.activated, "waited", time.Since(start))
	return err
}

// collect merges the page's current external links and returns how many
// were new.
func (st *run) collect(ctx context.Context) (int, error) {
	links, err := st.s.Links(ctx)
	if err != nil {
		return 0, err
	}
	return st.add(links), nil
}

func (st *run) finish() *Result {
	st.result.Links = st.links
	st.result.Activated = st.activated
	return st.result
}

func ofClass(ts []models.DynamicTrigger, c models.TriggerClass) []models.DynamicTrigger {
	var out []models.DynamicTrigger
	for _, t := range ts {
		if t.Class == c {
			out = append(out, t)
		}
	}
	return out
}
