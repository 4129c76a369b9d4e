// Package structure decides which selectors locate the title, body, author
// and date of an article page. It tries, in order, a cached selector set for
// the domain, an AI inference collaborator and fixed heuristics.
package structure

import (
	"context"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// SelectorRequest is what the AI collaborator sees.
type SelectorRequest struct {
	HTMLExcerpt string
	URL         string
}

// RawSelectors is an untrusted AI answer. Every field is sanitized before use.
type RawSelectors struct {
	TitleSelector   string `json:"titleSelector"`
	ContentSelector string `json:"contentSelector"`
	AuthorSelector  string `json:"authorSelector,omitempty"`
	DateSelector    string `json:"dateSelector,omitempty"`
}

// Inferer asks a model for article selectors.
type Inferer interface {
	InferSelectors(ctx context.Context, req SelectorRequest) (*RawSelectors, error)
}

// SelectorCache stores selector sets by domain. Invalidation is the cache's
// concern.
type SelectorCache interface {
	Get(ctx context.Context, domain string) (*models.SelectorSet, bool)
	Set(ctx context.Context, domain string, set models.SelectorSet)
}

// Confidence per origin.
const (
	ConfidenceAI          = 0.9
	ConfidenceAIWeakTitle = 0.7
	ConfidenceHeuristic   = 0.6
	ConfidenceLastResort  = 0.4
)

const (
	minTitleLength         = 4
	defaultMinContentChars = 200
)
