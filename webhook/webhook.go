// Package webhook delivers signed JSON events to HTTP endpoints. It carries
// scrape error telemetry and batch completion notices.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Event types.
const (
	EventScrapeError    = "scrape.error"
	EventBatchCompleted = "batch.completed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-RiskAI-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// ErrorRecord is the telemetry form of a ScrapeError.
type ErrorRecord struct {
	Kind      models.ErrorKind `json:"kind"`
	Code      string           `json:"code"`
	Step      string           `json:"step,omitempty"`
	Message   string           `json:"message"`
	Cause     string           `json:"cause,omitempty"`
	Retryable bool             `json:"retryable"`
	Context   map[string]any   `json:"context,omitempty"`
}

// NewErrorRecord flattens se for delivery.
func NewErrorRecord(se *models.ScrapeError) ErrorRecord {
	rec := ErrorRecord{
		Kind:      se.Kind,
		Code:      se.Code,
		Step:      se.Step,
		Message:   se.Message,
		Retryable: se.Retryable,
		Context:   se.Context,
	}
	if se.Err != nil {
		rec.Cause = se.Err.Error()
	}
	return rec
}

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// Deliver sends a webhook event synchronously.
func Deliver(ctx context.Context, client *http.Client, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RiskAI-Webhook/1.0")

	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// defaultDelays are the waits before each attempt.
var defaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// DeliverAsync sends a webhook event in the background with up to 3 retries.
func DeliverAsync(url, secret string, event *Event) {
	go deliverWithRetry(defaultClient, url, secret, event, defaultDelays)
}

func deliverWithRetry(client *http.Client, url, secret string, event *Event, delays []time.Duration) bool {
	for attempt, delay := range delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := Deliver(ctx, client, url, secret, event)
		cancel()
		if err == nil {
			slog.Debug("webhook delivered",
				"url", url,
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
			)
			return true
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", url,
		"event", event.Type,
		"job_id", event.JobID,
	)
	return false
}

// Sink reports ScrapeErrors to a webhook endpoint. Report never blocks the
// pipeline.
type Sink struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
}

// NewSink creates a Sink posting to url.
func NewSink(url, secret string) *Sink {
	return &Sink{url: url, secret: secret, client: defaultClient, delays: defaultDelays}
}

// Report delivers se asynchronously.
func (s *Sink) Report(se *models.ScrapeError) {
	if se == nil || s.url == "" {
		return
	}
	event := &Event{
		Type:      EventScrapeError,
		Timestamp: time.Now().Unix(),
		Data:      NewErrorRecord(se),
	}
	go deliverWithRetry(s.client, s.url, s.secret, event, s.delays)
}
