package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPEngine is the lightweight fetcher. It uses net/http with a Chrome-like
// TLS fingerprint and never runs JavaScript.
type HTTPEngine struct {
	client       *http.Client
	maxRedirects int
	minBodyBytes int
	timeout      time.Duration
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine from the engine configuration.
func NewHTTPEngine(cfg config.EngineConfig) *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPEngine{
		client:       &http.Client{Transport: transport},
		maxRedirects: cfg.MaxRedirects,
		minBodyBytes: cfg.MinBodyBytes,
		timeout:      cfg.HTTPTimeout,
	}
}

func (e *HTTPEngine) Name() string { return string(models.MethodHTTP) }

// Fetch performs a single GET. Responses that look like an interstitial are
// returned with a protection signature instead of an error so the dispatcher
// can decide to escalate.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewKindError(models.KindParsing, classify.StepFetchHTTP, "invalid url", err)
	}

	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	// Per-request client so the redirect bookkeeping stays local.
	redirects, looped := 0, false
	client := *e.client
	client.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		redirects = len(via)
		for _, prev := range via {
			if prev.URL.String() == r.URL.String() {
				looped = true
				return http.ErrUseLastResponse
			}
		}
		if e.maxRedirects > 0 && len(via) > e.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify.Classify(classify.StepFetchHTTP, err)
	}
	defer resp.Body.Close()

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classify.Classify(classify.StepFetchHTTP, err)
	}

	info := ResponseInfo{
		StatusCode: resp.StatusCode,
		Body:       body,
		Redirects:  redirects,
		Looped:     looped,
	}
	inspection := DetectProtection(info, e.maxRedirects, e.minBodyBytes)

	result := &models.FetchResult{
		HTML:       string(body),
		Title:      extractTitle(body),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Method:     models.MethodHTTP,
		Protection: inspection.Signature,
	}

	switch {
	case inspection.Signature == models.ProtectionRedirectLoop:
		return result, nil
	case resp.StatusCode >= 400 && !blockingStatus(resp.StatusCode):
		return nil, classify.Classify(classify.StepFetchHTTP,
			&classify.StatusError{StatusCode: resp.StatusCode, URL: req.URL})
	case resp.StatusCode < 400 && !isHTMLContentType(resp.Header.Get("Content-Type")):
		return nil, models.NewKindError(models.KindParsing, classify.StepFetchHTTP,
			"non-html response", fmt.Errorf("content-type %q", resp.Header.Get("Content-Type")))
	}

	return result, nil
}

// blockingStatus lists the statuses anti-bot layers answer with. Their body is
// kept for inspection.
func blockingStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// isHTMLContentType returns true if the content-type header looks like HTML.
// A missing header is accepted.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
