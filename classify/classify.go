// Package classify maps raw failures from any pipeline stage onto the
// models.ScrapeError taxonomy, stamping the step and retry decision.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Pipeline step names attached to every ScrapeError.
const (
	StepDispatch     = "dispatch"
	StepFetchHTTP    = "fetch.http"
	StepFetchBrowser = "fetch.browser"
	StepPool         = "pool"
	StepBypass       = "bypass"
	StepDiscover     = "discover"
	StepStructure    = "structure"
	StepStructureAI  = "structure.ai"
	StepExtract      = "extract"
)

// stepDefaults is the kind assigned to an unrecognized error raised by a step.
var stepDefaults = map[string]models.ErrorKind{
	StepFetchHTTP:    models.KindNetwork,
	StepFetchBrowser: models.KindPuppeteer,
	StepPool:         models.KindPuppeteer,
	StepBypass:       models.KindPuppeteer,
	StepDiscover:     models.KindPuppeteer,
	StepStructureAI:  models.KindAI,
	StepStructure:    models.KindParsing,
	StepExtract:      models.KindParsing,
}

// StatusError is a non-success HTTP response from a fetched resource.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Classify converts err into a *models.ScrapeError tagged with step.
// An existing ScrapeError keeps its kind; only a missing step is filled in.
// Classify(step, nil) returns nil.
func Classify(step string, err error) *models.ScrapeError {
	if err == nil {
		return nil
	}

	var se *models.ScrapeError
	if errors.As(err, &se) {
		if se.Step == "" {
			se.Step = step
		}
		return se
	}

	kind, retryable := kindOf(step, err)
	out := models.NewKindError(kind, step, summarize(err), err)
	out.Retryable = retryable
	return out
}

// KindOf returns the kind err would be classified as.
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	return Classify("", err).Kind
}

func kindOf(step string, err error) (models.ErrorKind, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return models.KindTimeout, false
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return models.KindTimeout, true
	}

	var status *StatusError
	if errors.As(err, &status) {
		return kindForStatus(status.StatusCode)
	}

	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		if strings.HasPrefix(navErr.Reason, "net::ERR_") {
			return models.KindNetwork, true
		}
		return models.KindPuppeteer, true
	}

	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) {
		return models.KindPuppeteer, true
	}

	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		return models.KindPuppeteer, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return models.KindTimeout, true
		}
		return models.KindNetwork, !dnsErr.IsNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.KindTimeout, true
		}
		return models.KindNetwork, true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		if step == StepStructureAI {
			return models.KindAI, false
		}
		return models.KindParsing, false
	}

	if kind, ok := stepDefaults[step]; ok {
		return kind, kind.Retryable()
	}
	return models.KindUnknown, false
}

func kindForStatus(code int) (models.ErrorKind, bool) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusProxyAuthRequired:
		return models.KindAuth, false
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return models.KindTimeout, true
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		// usually a bot wall; automation may get through
		return models.KindNetwork, true
	case code == http.StatusNotFound || code == http.StatusGone:
		return models.KindNetwork, false
	case code >= 500:
		return models.KindNetwork, true
	default:
		return models.KindNetwork, false
	}
}

func summarize(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
