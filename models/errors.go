package models

import (
	"fmt"
	"strings"
)

// ErrorKind is the failure taxonomy shared by every pipeline stage.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindParsing   ErrorKind = "parsing"
	KindAI        ErrorKind = "ai"
	KindPuppeteer ErrorKind = "puppeteer" // browser automation
	KindTimeout   ErrorKind = "timeout"
	KindAuth      ErrorKind = "auth"
	KindUnknown   ErrorKind = "unknown"
)

// Retryable reports whether a failure of this kind is worth one more attempt
// (method escalation or a fresh browser lease).
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindPuppeteer:
		return true
	default:
		return false
	}
}

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeExtraction   = "CONTENT_EXTRACTION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeChallenge    = "CHALLENGE_NOT_CLEARED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// AI-related error codes from the structure inference step.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying a kind, a code, and the
// pipeline step that produced it. It supports error wrapping via Unwrap.
type ScrapeError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Step      string
	Retryable bool
	Context   map[string]any
	Err       error // wrapped original error
}

func (e *ScrapeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Step != "" {
		b.WriteString("[" + e.Step + "]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// WithContext attaches a key/value pair and returns the same error.
func (e *ScrapeError) WithContext(key string, value any) *ScrapeError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewScrapeError creates a ScrapeError from an error code. The kind is
// derived from the code.
func NewScrapeError(code, message string, err error) *ScrapeError {
	kind := kindForCode(code)
	return &ScrapeError{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Retryable: kind.Retryable(),
		Err:       err,
	}
}

// NewKindError creates a ScrapeError for a kind at a named step.
func NewKindError(kind ErrorKind, step, message string, err error) *ScrapeError {
	return &ScrapeError{
		Kind:      kind,
		Code:      codeForKind(kind),
		Message:   message,
		Step:      step,
		Retryable: kind.Retryable(),
		Err:       err,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{
		Code:    e.Code,
		Kind:    string(e.Kind),
		Step:    e.Step,
		Message: e.Message,
	}
}

func kindForCode(code string) ErrorKind {
	switch code {
	case ErrCodeTimeout:
		return KindTimeout
	case ErrCodeNavigation:
		return KindNetwork
	case ErrCodeBrowserCrash, ErrCodeChallenge:
		return KindPuppeteer
	case ErrCodeExtraction, ErrCodeInvalidInput:
		return KindParsing
	case ErrCodeUnauthorized:
		return KindAuth
	case ErrCodeLLMFailure, ErrCodeLLMAuthFailure, ErrCodeLLMRateLimited:
		return KindAI
	default:
		return KindUnknown
	}
}

func codeForKind(kind ErrorKind) string {
	switch kind {
	case KindTimeout:
		return ErrCodeTimeout
	case KindNetwork:
		return ErrCodeNavigation
	case KindPuppeteer:
		return ErrCodeBrowserCrash
	case KindParsing:
		return ErrCodeExtraction
	case KindAuth:
		return ErrCodeUnauthorized
	case KindAI:
		return ErrCodeLLMFailure
	default:
		return ErrCodeInternal
	}
}
