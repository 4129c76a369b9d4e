package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// clearStorageJS empties web storage and script-visible cookies. It must run
// before leaving the origin; about:blank has no storage to clear.
const clearStorageJS = `() => {
	try { if (window.localStorage) localStorage.clear(); } catch (e) {}
	try { if (window.sessionStorage) sessionStorage.clear(); } catch (e) {}
	try {
		for (const c of (document.cookie || "").split(";")) {
			const name = c.split("=")[0].trim();
			if (name) document.cookie = name + "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/";
		}
	} catch (e) {}
	return true;
}`

// RodPage is a pooled Chrome tab.
type RodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

// Rod returns the underlying rod page.
func (p *RodPage) Rod() *rod.Page { return p.page }

// Healthy proves the renderer still answers with a no-op evaluation.
func (p *RodPage) Healthy(ctx context.Context) error {
	res, err := p.page.Context(ctx).Eval(`() => true`)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("health eval returned %s", res.Value.Raw())
	}
	return nil
}

// Reset clears storage, cookies and extra headers, then parks the tab on
// about:blank and verifies it got there.
func (p *RodPage) Reset(ctx context.Context) error {
	pc := p.page.Context(ctx)

	if _, err := pc.Eval(clearStorageJS); err != nil {
		// about:blank and opaque origins refuse storage access.
		slog.Debug("pool: clear storage", "error", err)
	}
	if err := (proto.NetworkClearBrowserCookies{}).Call(pc); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: proto.NetworkHeaders{}}).Call(pc); err != nil {
		return fmt.Errorf("clear headers: %w", err)
	}
	if err := pc.Navigate("about:blank"); err != nil {
		return fmt.Errorf("navigate about:blank: %w", err)
	}

	res, err := pc.Eval(`() => window.location.href`)
	if err != nil {
		return err
	}
	if href := res.Value.Str(); href != "about:blank" {
		return fmt.Errorf("page not reset, still at %s", href)
	}
	return nil
}

// Close stops request interception and closes the tab.
func (p *RodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

// rodPageOf unwraps a leased page.
func rodPageOf(l *Lease) (*rod.Page, error) {
	rp, ok := l.Page().(*RodPage)
	if !ok {
		return nil, fmt.Errorf("lease %d does not hold a rod page", l.ID)
	}
	return rp.page, nil
}
