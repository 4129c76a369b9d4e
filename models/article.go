package models

import (
	"errors"
	"time"
)

// TargetRole tells the pipeline what a fetched page is for.
type TargetRole string

const (
	RoleSource  TargetRole = "source"  // listing page, mined for links
	RoleArticle TargetRole = "article" // single article, mined for content
)

// FetchTarget is a single caller request. It is never mutated after creation.
type FetchTarget struct {
	URL         string
	Role        TargetRole
	ContextHint string
}

// FetchMethod records how a document was obtained.
type FetchMethod string

const (
	MethodHTTP       FetchMethod = "http"
	MethodAutomation FetchMethod = "automation"
)

// ProtectionSignature is the evidence that a response is an anti-bot
// interstitial rather than real content.
type ProtectionSignature string

const (
	ProtectionNone         ProtectionSignature = "none"
	ProtectionChallenge    ProtectionSignature = "challenge"
	ProtectionRedirectLoop ProtectionSignature = "redirect-loop"
)

// FetchResult is the raw document handed from a fetcher to the next stage.
type FetchResult struct {
	HTML       string
	Title      string
	FinalURL   string
	StatusCode int
	Method     FetchMethod
	Protection ProtectionSignature

	// Escalated is true when the lightweight fetch was abandoned for automation.
	Escalated bool
}

// TriggerClass is the classification of a dynamic-loading trigger.
type TriggerClass string

const (
	TriggerContainer  TriggerClass = "container"
	TriggerItem       TriggerClass = "item"
	TriggerPagination TriggerClass = "pagination"
	TriggerFilter     TriggerClass = "filter"
)

// Rank orders classes for processing; lower runs first.
func (c TriggerClass) Rank() int {
	switch c {
	case TriggerContainer:
		return 0
	case TriggerItem:
		return 1
	case TriggerPagination:
		return 2
	case TriggerFilter:
		return 3
	default:
		return 4
	}
}

// DynamicTrigger is a DOM element whose activation loads more content
// without a full navigation.
type DynamicTrigger struct {
	SelectorPath string       `json:"selector_path"`
	Endpoint     string       `json:"endpoint,omitempty"`
	TargetRegion string       `json:"target_region,omitempty"`
	TriggerEvent string       `json:"trigger_event,omitempty"`
	Text         string       `json:"text,omitempty"`
	Class        TriggerClass `json:"class"`
	Priority     int          `json:"priority"`
}

// SelectorOrigin records which detection tier produced a SelectorSet.
type SelectorOrigin string

const (
	OriginAI        SelectorOrigin = "ai"
	OriginHeuristic SelectorOrigin = "heuristic"
	OriginCached    SelectorOrigin = "cached"
)

// SelectorSet locates the article fields on pages of one domain.
type SelectorSet struct {
	TitleSelector   string         `json:"title_selector"`
	ContentSelector string         `json:"content_selector"`
	AuthorSelector  string         `json:"author_selector,omitempty"`
	DateSelector    string         `json:"date_selector,omitempty"`
	Confidence      float64        `json:"confidence"`
	Origin          SelectorOrigin `json:"origin"`
}

// Validate checks that the required selectors are present.
func (s *SelectorSet) Validate() error {
	if s.TitleSelector == "" {
		return errors.New("title selector is required")
	}
	if s.ContentSelector == "" {
		return errors.New("content selector is required")
	}
	return nil
}

// Clamp bounds Confidence to [0,1].
func (s *SelectorSet) Clamp() {
	switch {
	case s.Confidence < 0:
		s.Confidence = 0
	case s.Confidence > 1:
		s.Confidence = 1
	}
}

// Extraction methods, from strongest to weakest.
const (
	ExtractSelector       = "selector"
	ExtractSecondary      = "secondary"
	ExtractParagraphs     = "paragraphs"
	ExtractDocument       = "document"
	ExtractDomainFallback = "domain-fallback"
	ExtractError          = "error"
)

// ExtractedArticle is the normalized output of an article extraction.
// Title and Content are non-empty unless ExtractionMethod is "error".
type ExtractedArticle struct {
	Title            string       `json:"title"`
	Content          string       `json:"content"`
	Markdown         string       `json:"markdown,omitempty"`
	Author           string       `json:"author,omitempty"`
	PublishDate      *time.Time   `json:"publish_date,omitempty"`
	SourceURL        string       `json:"source_url"`
	ExtractionMethod string       `json:"extraction_method"`
	Confidence       float64      `json:"confidence"`
	Selectors        *SelectorSet `json:"selectors,omitempty"`
	FetchMethod      FetchMethod  `json:"fetch_method,omitempty"`
}
