package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-farino/RiskAi-sub010/models"
)

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(StepExtract, nil))
}

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		name      string
		step      string
		err       error
		kind      models.ErrorKind
		retryable bool
	}{
		{"deadline", StepFetchHTTP, context.DeadlineExceeded, models.KindTimeout, true},
		{"wrapped deadline", StepFetchBrowser, fmt.Errorf("navigate: %w", context.DeadlineExceeded), models.KindTimeout, true},
		{"canceled", StepFetchHTTP, context.Canceled, models.KindTimeout, false},
		{"dns not found", StepFetchHTTP, &net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}, models.KindNetwork, false},
		{"dns timeout", StepFetchHTTP, &net.DNSError{Err: "timeout", IsTimeout: true}, models.KindTimeout, true},
		{"unauthorized", StepFetchHTTP, &StatusError{StatusCode: 401}, models.KindAuth, false},
		{"forbidden", StepFetchHTTP, &StatusError{StatusCode: 403}, models.KindNetwork, true},
		{"not found", StepFetchHTTP, &StatusError{StatusCode: 404}, models.KindNetwork, false},
		{"bad gateway", StepFetchHTTP, &StatusError{StatusCode: 502}, models.KindNetwork, true},
		{"gateway timeout", StepFetchHTTP, &StatusError{StatusCode: 504}, models.KindTimeout, true},
		{"rod net navigation", StepFetchBrowser, &rod.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}, models.KindNetwork, true},
		{"rod other navigation", StepFetchBrowser, &rod.NavigationError{Reason: "aborted"}, models.KindPuppeteer, true},
		{"json in ai step", StepStructureAI, &json.SyntaxError{}, models.KindAI, false},
		{"json elsewhere", StepExtract, &json.SyntaxError{}, models.KindParsing, false},
		{"unknown in browser step", StepBypass, errors.New("boom"), models.KindPuppeteer, true},
		{"unknown in ai step", StepStructureAI, errors.New("boom"), models.KindAI, false},
		{"unknown step", "other", errors.New("boom"), models.KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := Classify(tt.step, tt.err)
			require.NotNil(t, se)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.Equal(t, tt.step, se.Step)
			assert.ErrorIs(t, se, tt.err)
		})
	}
}

func TestClassify_PreservesScrapeError(t *testing.T) {
	orig := models.NewKindError(models.KindAI, "", "model said no", nil)
	se := Classify(StepStructureAI, fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, se)
	assert.Equal(t, models.KindAI, se.Kind)
	assert.Equal(t, StepStructureAI, se.Step)

	stamped := models.NewKindError(models.KindParsing, StepExtract, "x", nil)
	assert.Equal(t, StepExtract, Classify(StepFetchHTTP, stamped).Step)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, models.KindAuth, KindOf(&StatusError{StatusCode: 401}))
	assert.Equal(t, models.ErrorKind(""), KindOf(nil))
}

func TestSummarize(t *testing.T) {
	se := Classify(StepExtract, errors.New("first line\nsecond line"))
	assert.Equal(t, "first line", se.Message)
}
