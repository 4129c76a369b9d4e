package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/anna-farino/RiskAi-sub010/discover"
	"github.com/anna-farino/RiskAi-sub010/engine"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// detectTriggersJS lists elements that load content without a full
// navigation. Classification happens in Go.
const detectTriggersJS = `() => {
	const pathOf = (el) => {
		if (el.id && document.querySelectorAll("#" + CSS.escape(el.id)).length === 1) {
			return "#" + CSS.escape(el.id);
		}
		const parts = [];
		for (let n = el; n && n.nodeType === 1 && n !== document.documentElement; n = n.parentElement) {
			let i = 1;
			for (let s = n.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.tagName === n.tagName) i++;
			}
			parts.unshift(n.tagName.toLowerCase() + ":nth-of-type(" + i + ")");
		}
		return "html > " + parts.join(" > ");
	};
	const attr = (el, ...names) => {
		for (const n of names) { const v = el.getAttribute(n); if (v) return v; }
		return "";
	};
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};

	const out = [];
	const seen = new Set();
	const push = (el) => {
		if (seen.has(el) || !visible(el)) return;
		seen.add(el);
		out.push({
			selector_path: pathOf(el),
			endpoint: attr(el, "hx-get", "data-hx-get", "hx-post", "data-hx-post", "data-url", "data-href", "data-load-more", "data-next", "href"),
			target_region: attr(el, "hx-target", "data-hx-target", "data-target", "aria-controls"),
			trigger_event: attr(el, "hx-trigger", "data-hx-trigger") || "click",
			text: (el.innerText || el.getAttribute("aria-label") || "").trim().slice(0, 80),
		});
	};

	document.querySelectorAll("[hx-get],[hx-post],[data-hx-get],[data-hx-post],[data-url],[data-load-more],[data-next]").forEach(push);
	document.querySelectorAll("a[rel=next],.pagination a,.pager a,nav[aria-label*=agination] a").forEach(push);

	const keyword = /(load|show|view|see)\s+more|more\s+(stories|articles|news|posts|results)|older|next|^\s*more\s*$|filter|category|all\s+news/i;
	document.querySelectorAll("button,[role=button],a[href^='#'],a[href^='javascript']").forEach((el) => {
		const t = (el.innerText || el.getAttribute("aria-label") || "").trim();
		if (t && t.length < 60 && keyword.test(t)) push(el);
	});
	return out;
}`

const linksJS = `() => Array.from(document.querySelectorAll("a[href]")).map((a) => ({
	url: a.href,
	text: (a.innerText || a.getAttribute("title") || "").trim().slice(0, 200),
}))`

// Surface exposes a live, already-navigated page to the link resolver.
type Surface struct {
	page   *rod.Page
	settle time.Duration
}

// NewSurface wraps page. settle bounds the wait after each activation.
func NewSurface(page *rod.Page, settle time.Duration) *Surface {
	return &Surface{page: page, settle: settle}
}

var _ discover.Surface = (*Surface)(nil)

// Explore visits req.URL and hands fn a Surface over the cleared page.
func (f *Fetcher) Explore(ctx context.Context, req *engine.FetchRequest, settle time.Duration, fn func(context.Context, discover.Surface) error) error {
	return f.Visit(ctx, req, func(ctx context.Context, page *rod.Page) error {
		return fn(ctx, NewSurface(page, settle))
	})
}

// URL returns the current document location.
func (s *Surface) URL(ctx context.Context) string {
	return evalStringOrEmpty(s.page.Context(ctx), `() => window.location.href`)
}

// DetectTriggers scans the DOM for dynamic-loading triggers.
func (s *Surface) DetectTriggers(ctx context.Context) ([]models.DynamicTrigger, error) {
	res, err := s.page.Context(ctx).Eval(detectTriggersJS)
	if err != nil {
		return nil, err
	}
	var triggers []models.DynamicTrigger
	if err := res.Value.Unmarshal(&triggers); err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}
	return triggers, nil
}

// Activate clicks the trigger and waits for the DOM to settle.
func (s *Surface) Activate(ctx context.Context, t models.DynamicTrigger) error {
	p := s.page.Context(ctx)

	el, err := p.Timeout(3 * time.Second).Element(t.SelectorPath)
	if err != nil {
		return fmt.Errorf("trigger %q not found: %w", t.SelectorPath, err)
	}
	el = el.CancelTimeout().Context(ctx)

	if err := el.ScrollIntoView(); err != nil {
		slog.Debug("trigger scroll", "selector", t.SelectorPath, "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Covered or zero-size elements still respond to a DOM click.
		if _, jsErr := el.Eval(`function () { this.click(); return true }`); jsErr != nil {
			return errors.Join(err, jsErr)
		}
	}

	settleCtx, cancel := context.WithTimeout(ctx, s.settle)
	defer cancel()
	if err := s.page.Context(settleCtx).WaitDOMStable(300*time.Millisecond, 0.1); err != nil && ctx.Err() == nil {
		slog.Debug("trigger settle did not converge", "selector", t.SelectorPath)
	}
	return ctx.Err()
}

// Links returns every anchor on the page with its absolute URL.
func (s *Surface) Links(ctx context.Context) ([]discover.Link, error) {
	res, err := s.page.Context(ctx).Eval(linksJS)
	if err != nil {
		return nil, err
	}
	var links []discover.Link
	if err := res.Value.Unmarshal(&links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	return links, nil
}
