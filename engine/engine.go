package engine

import (
	"context"
	"time"

	"github.com/anna-farino/RiskAi-sub010/discover"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "automation").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL         string
	Role        models.TargetRole
	ContextHint string
	Headers     map[string]string
	Timeout     time.Duration

	// Live, when set, runs on the rendered page of an automation fetch
	// before the page is released. The lightweight engine ignores it.
	Live *PageHook
}

// PageHook hands the live page of an automation fetch to Fn together with
// the snapshot taken from it. Settle bounds the wait after each trigger
// activation on the Surface.
type PageHook struct {
	Settle time.Duration
	Fn     func(ctx context.Context, snapshot *models.FetchResult, s discover.Surface) error
}

// requestFor builds the engine request for a caller target.
func requestFor(t models.FetchTarget, timeout time.Duration) *FetchRequest {
	return &FetchRequest{
		URL:         t.URL,
		Role:        t.Role,
		ContextHint: t.ContextHint,
		Timeout:     timeout,
	}
}
