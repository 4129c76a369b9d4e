package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/textutil"
)

// Dispatcher is the method selector. It picks the lightweight fetch or
// browser automation per target and escalates at most once.
type Dispatcher struct {
	light     Engine
	heavy     Engine
	memory    *DomainMemory
	protected []string
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher. protected holds domain patterns that
// always go straight to automation ("example.com" or "*.example.com").
func NewDispatcher(light, heavy Engine, memory *DomainMemory, protected []string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		light:     light,
		heavy:     heavy,
		memory:    memory,
		protected: protected,
		timeout:   timeout,
	}
}

// Dispatch fetches the target and returns the raw document.
func (d *Dispatcher) Dispatch(ctx context.Context, target models.FetchTarget) (*models.FetchResult, error) {
	return d.DispatchLive(ctx, target, nil)
}

// DispatchLive is Dispatch, with hook run on the rendered page when the
// target ends up on browser automation. An HTTP result never calls hook.
func (d *Dispatcher) DispatchLive(ctx context.Context, target models.FetchTarget, hook *PageHook) (*models.FetchResult, error) {
	req := requestFor(target, d.timeout)
	req.Live = hook
	domain := textutil.Host(target.URL)

	if d.knownProtected(domain) {
		slog.Debug("protected domain, using automation", "domain", domain, "url", target.URL)
		return d.automate(ctx, req, false)
	}

	result, err := d.light.Fetch(ctx, req)
	if err != nil {
		se := classify.Classify(classify.StepFetchHTTP, err)
		if !se.Retryable || ctx.Err() != nil {
			return nil, se
		}
		slog.Info("lightweight fetch failed, escalating",
			"url", target.URL, "kind", se.Kind, "error", se.Message)
	} else if result.Protection != models.ProtectionNone {
		slog.Info("protection signature detected, escalating",
			"url", target.URL, "signature", result.Protection, "status", result.StatusCode)
	} else {
		return result, nil
	}

	if domain != "" && d.memory != nil {
		d.memory.Remember(domain)
	}
	return d.automate(ctx, req, true)
}

// automate runs the heavy engine. Its result is final: a signature on an
// automated page is reported, never escalated again.
func (d *Dispatcher) automate(ctx context.Context, req *FetchRequest, escalated bool) (*models.FetchResult, error) {
	if d.heavy == nil {
		return nil, models.NewKindError(models.KindPuppeteer, classify.StepFetchBrowser, "browser automation unavailable", nil)
	}

	result, err := d.heavy.Fetch(ctx, req)
	if err != nil {
		return nil, classify.Classify(classify.StepFetchBrowser, err)
	}
	result.Method = models.MethodAutomation
	result.Escalated = escalated
	if result.Protection == "" {
		result.Protection = models.ProtectionNone
	}
	if result.Protection != models.ProtectionNone {
		slog.Warn("automation result still carries a protection signature",
			"url", req.URL, "signature", result.Protection)
	}
	return result, nil
}

func (d *Dispatcher) knownProtected(domain string) bool {
	if domain == "" {
		return false
	}
	for _, pattern := range d.protected {
		if textutil.MatchesDomain(domain, pattern) {
			return true
		}
	}
	return d.memory != nil && d.memory.Protected(domain)
}
