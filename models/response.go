package models

// DiscoverResponse is the response for POST /api/v1/discover.
type DiscoverResponse struct {
	// Success indicates whether discovery completed without errors.
	Success bool `json:"success"`

	// Links are the de-duplicated absolute external URLs.
	Links []string `json:"links"`

	// Total is len(Links).
	Total int `json:"total"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool              `json:"success"`
	Article *ExtractedArticle `json:"article,omitempty"`
	Timing  TimingInfo        `json:"timing"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// ErrorResponse is written when a request fails before any work starts.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse builds a failed ErrorResponse.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Kind: string(kindForCode(code)), Message: message}}
}

// TimingInfo breaks down the time spent in an operation.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser session pool.
type PoolStats struct {
	MaxLeases    int `json:"max_leases"`
	ActiveLeases int `json:"active_leases"`
	IdlePages    int `json:"idle_pages"`

	// BlockedRequests counts resource requests dropped by the browser since start.
	BlockedRequests int64 `json:"blocked_requests"`
}
