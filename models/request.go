package models

// DiscoverRequest is the payload for POST /api/v1/discover.
type DiscoverRequest struct {
	// URL is the source page to mine for article links. Required.
	URL string `json:"url" binding:"required,url"`

	// TopicHint is free text passed along as context for the fetch.
	TopicHint string `json:"topic_hint,omitempty"`

	// MaxLinks caps the number of returned links.
	// Default: server configured value. Max: 1000.
	MaxLinks int `json:"max_links,omitempty" binding:"omitempty,min=1,max=1000"`
}

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the article page to extract. Required.
	URL string `json:"url" binding:"required,url"`

	// Selectors is an optional known selector set for the domain.
	// When present it bypasses structure detection.
	Selectors *SelectorSet `json:"selectors,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *DiscoverRequest) Defaults(maxLinks int) {
	if r.MaxLinks == 0 {
		r.MaxLinks = maxLinks
	}
}
