package scraper

import (
	"log/slog"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Sink receives every ScrapeError the pipeline produces or absorbs.
// Report must not block.
type Sink interface {
	Report(se *models.ScrapeError)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(*models.ScrapeError)

func (f SinkFunc) Report(se *models.ScrapeError) { f(se) }

// LogSink writes errors to slog.
type LogSink struct{}

func (LogSink) Report(se *models.ScrapeError) {
	if se == nil {
		return
	}
	attrs := []any{
		"kind", se.Kind,
		"code", se.Code,
		"step", se.Step,
		"retryable", se.Retryable,
	}
	if u, ok := se.Context["url"]; ok {
		attrs = append(attrs, "url", u)
	}
	if se.Err != nil {
		attrs = append(attrs, "error", se.Err)
	}
	slog.Warn(se.Message, attrs...)
}

// MultiSink fans a report out to several sinks.
type MultiSink []Sink

func (m MultiSink) Report(se *models.ScrapeError) {
	for _, s := range m {
		if s != nil {
			s.Report(se)
		}
	}
}
