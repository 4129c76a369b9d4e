package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		HTTPTimeout:  5 * time.Second,
		MinBodyBytes: 1024,
		MaxRedirects: 5,
	}
}

func TestHTTPEngine_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Chrome")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage("VPN flaw exploited")))
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(cloudflarePage))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/loop-a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop-b", http.StatusFound)
	})
	mux.HandleFunc("/loop-b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop-a", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eng := NewHTTPEngine(testEngineConfig())
	ctx := context.Background()

	t.Run("clean article", func(t *testing.T) {
		res, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/article"})
		require.NoError(t, err)
		assert.Equal(t, models.MethodHTTP, res.Method)
		assert.Equal(t, models.ProtectionNone, res.Protection)
		assert.Equal(t, "VPN flaw exploited", res.Title)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("challenge is returned for inspection", func(t *testing.T) {
		res, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/challenge"})
		require.NoError(t, err)
		assert.Equal(t, models.ProtectionChallenge, res.Protection)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("not found is a non-retryable network error", func(t *testing.T) {
		_, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/missing"})
		var se *models.ScrapeError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, models.KindNetwork, se.Kind)
		assert.False(t, se.Retryable)
	})

	t.Run("non-html is a parsing error", func(t *testing.T) {
		_, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/json"})
		var se *models.ScrapeError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, models.KindParsing, se.Kind)
	})

	t.Run("redirect loop", func(t *testing.T) {
		res, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/loop-a"})
		require.NoError(t, err)
		assert.Equal(t, models.ProtectionRedirectLoop, res.Protection)
	})
}

func TestHTTPEngine_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	eng := NewHTTPEngine(testEngineConfig())
	_, err := eng.Fetch(context.Background(), &FetchRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.KindTimeout, se.Kind)
	assert.True(t, se.Retryable)
}
