// Package discover mines a source page for outbound article links,
// activating dynamic-loading triggers (htmx endpoints, load-more buttons,
// pagination) in a fixed class order.
package discover

import (
	"context"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Link is an anchor found on a page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Surface is a live, already-navigated page.
type Surface interface {
	// URL returns the current document location.
	URL(ctx context.Context) string
	// DetectTriggers lists candidate triggers. Class and Priority are
	// assigned by the resolver.
	DetectTriggers(ctx context.Context) ([]models.DynamicTrigger, error)
	// Activate fires a trigger and waits for the page to settle.
	Activate(ctx context.Context, t models.DynamicTrigger) error
	// Links returns every anchor currently in the document.
	Links(ctx context.Context) ([]Link, error)
}
