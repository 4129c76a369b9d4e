package browser

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

const visibilityJS = `(hidden) => {
	Object.defineProperty(document, "hidden", { configurable: true, get: () => hidden });
	Object.defineProperty(document, "visibilityState", { configurable: true, get: () => hidden ? "hidden" : "visible" });
	document.dispatchEvent(new Event("visibilitychange"));
	window.dispatchEvent(new Event(hidden ? "blur" : "focus"));
	return true;
}`

// Simulate performs a short burst of human-looking input on the page:
// pointer paths, scrolling, focus and keys, and a tab-visibility round trip.
// Failures are logged at debug level and otherwise ignored.
func Simulate(ctx context.Context, page *rod.Page) {
	p := page.Context(ctx)

	// ── pointer ──
	for range 2 + rand.IntN(3) {
		to := proto.Point{X: float64(100 + rand.IntN(1100)), Y: float64(80 + rand.IntN(560))}
		if err := p.Mouse.MoveLinear(to, 5+rand.IntN(15)); err != nil {
			slog.Debug("simulate: mouse move", "error", err)
			return
		}
		if !pause(ctx, 50, 250) {
			return
		}
	}

	// ── scroll ──
	for range 1 + rand.IntN(3) {
		dy := float64(150 + rand.IntN(500))
		if rand.IntN(4) == 0 {
			dy = -dy / 2
		}
		if err := p.Mouse.Scroll(0, dy, 3+rand.IntN(5)); err != nil {
			slog.Debug("simulate: scroll", "error", err)
		}
		if !pause(ctx, 200, 700) {
			return
		}
	}

	// ── focus / keyboard ──
	if _, err := p.Eval(`() => { window.focus(); if (document.body) document.body.focus(); return true }`); err != nil {
		slog.Debug("simulate: focus", "error", err)
	}
	keys := []input.Key{input.ArrowDown, input.ArrowDown, input.PageDown, input.ArrowUp}
	if err := p.Keyboard.Type(keys[rand.IntN(len(keys))]); err != nil {
		slog.Debug("simulate: keyboard", "error", err)
	}

	// ── visibility ──
	if rand.IntN(2) == 0 {
		if _, err := p.Eval(visibilityJS, true); err != nil {
			slog.Debug("simulate: hide", "error", err)
			return
		}
		pause(ctx, 300, 1200)
		if _, err := p.Eval(visibilityJS, false); err != nil {
			slog.Debug("simulate: show", "error", err)
		}
	}
}

// pause sleeps a random duration in [minMs, maxMs). It returns false if ctx
// ended first.
func pause(ctx context.Context, minMs, maxMs int) bool {
	d := time.Duration(minMs+rand.IntN(maxMs-minMs)) * time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// jitter returns a random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
