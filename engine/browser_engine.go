package engine

import (
	"context"
	"fmt"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// BrowserFetchFunc performs a fetch through the browser session pool. It is
// injected from main to keep engine free of a dependency on browser.
type BrowserFetchFunc func(ctx context.Context, req *FetchRequest) (*models.FetchResult, error)

// BrowserEngine is the automation engine. It delegates to the browser
// package via a callback.
type BrowserEngine struct {
	fetchFunc BrowserFetchFunc
}

// NewBrowserEngine creates a BrowserEngine around fetchFunc.
func NewBrowserEngine(fetchFunc BrowserFetchFunc) *BrowserEngine {
	return &BrowserEngine{fetchFunc: fetchFunc}
}

func (e *BrowserEngine) Name() string { return string(models.MethodAutomation) }

func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("%s: fetchFunc not configured", e.Name())
	}

	r := *req
	result, err := e.fetchFunc(ctx, &r)
	if err != nil {
		return nil, err
	}
	result.Method = models.MethodAutomation
	return result, nil
}
