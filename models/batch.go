package models

// BatchRequest is the payload for POST /api/v1/batch/extract.
type BatchRequest struct {
	// URLs is the list of article pages to extract. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// WebhookURL is notified with a batch.completed event when the job ends.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/extract.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchItem is the outcome for one URL of a batch. Failed items carry an
// Error and are skipped, never aborting the rest of the batch.
type BatchItem struct {
	URL     string            `json:"url"`
	Article *ExtractedArticle `json:"article,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Total     int          `json:"total"`
	Results   []*BatchItem `json:"results,omitempty"`
}
