package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	Bypass    BypassConfig
	Discover  DiscoverConfig
	Structure StructureConfig
	Extract   ExtractConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// BatchConcurrency bounds how many batch items run at once.
	BatchConcurrency int // default: 4
}

// BrowserConfig controls the Rod browser instance and the session pool.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// PoolSize is the maximum number of concurrently leased pages.
	PoolSize int // default: 5

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// HealthTimeout bounds the no-op evaluation used to verify a pooled page.
	HealthTimeout time.Duration // default: 2s
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-operation timeout.
	DefaultTimeout time.Duration // default: 60s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists resource types to block in the browser.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool // default: true

	// SimulateHuman toggles the pointer/scroll/visibility simulator.
	SimulateHuman bool // default: true
}

// EngineConfig controls the method selector.
type EngineConfig struct {
	// HTTPTimeout is the deadline for the lightweight HTTP fetch.
	HTTPTimeout time.Duration // default: 15s

	// MinBodyBytes is the smallest body accepted as real content.
	MinBodyBytes int // default: 1024

	// MaxRedirects above this count is treated as a redirect loop.
	MaxRedirects int // default: 5

	// ProtectedDomains always go straight to browser automation.
	// Entries match the host or any parent domain.
	ProtectedDomains []string

	// MemoryTTL is how long an escalated domain is remembered.
	MemoryTTL time.Duration // default: 24h
}

// BypassConfig controls the challenge-wait loop.
type BypassConfig struct {
	// Timeout bounds how long challenge markers are polled for.
	Timeout time.Duration // default: 15s

	// PollInterval is the pause between challenge checks.
	PollInterval time.Duration // default: 500ms

	// MinDelay and MaxDelay bound the human-like pause before navigating.
	MinDelay time.Duration // default: 500ms
	MaxDelay time.Duration // default: 2s
}

// DiscoverConfig controls the dynamic link resolver budgets.
type DiscoverConfig struct {
	// MaxContainerTriggers caps how many container triggers are activated.
	MaxContainerTriggers int // default: 5

	// MaxTotalTriggers caps activations across the whole page.
	MaxTotalTriggers int // default: 50

	// PaginationThreshold: pagination runs only below this many external links.
	PaginationThreshold int // default: 20

	// ThrottleEvery pauses after this many activations.
	ThrottleEvery int // default: 10

	// ThrottlePause is the pause inserted every ThrottleEvery activations.
	ThrottlePause time.Duration // default: 1s

	// SettleTime is the wait after each activation for new content.
	SettleTime time.Duration // default: 1500ms

	// MaxLinks is the default cap on returned links.
	MaxLinks int // default: 200
}

// StructureConfig controls selector detection.
type StructureConfig struct {
	// ExcerptBytes bounds the HTML sent to the AI collaborator.
	ExcerptBytes int // default: 30000

	// AIProvider selects the inference backend: "openai", "anthropic" or "" (disabled).
	AIProvider string

	// AIModel is the model name passed to the provider.
	AIModel string // default: provider specific

	// AIAPIKey authenticates against the provider.
	AIAPIKey string

	// AIBaseURL is the OpenAI-compatible endpoint root.
	AIBaseURL string // default: "https://api.openai.com/v1"

	// AITimeout bounds a single inference call.
	AITimeout time.Duration // default: 30s
}

// ExtractConfig controls the content extractor.
type ExtractConfig struct {
	// MinParagraphLength is the shortest block counted during paragraph aggregation.
	MinParagraphLength int // default: 80

	// MinContentLength is the shortest body accepted from a tier.
	MinContentLength int // default: 200

	// Markdown additionally renders the body as Markdown.
	Markdown bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the in-memory selector cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached selector sets.
	MaxEntries int // default: 1000

	// TTL is how long a selector set stays valid.
	TTL time.Duration // default: 72h
}

// TelemetryConfig controls where ScrapeError records are delivered.
type TelemetryConfig struct {
	// WebhookURL receives error records as signed JSON. Empty disables delivery.
	WebhookURL string

	// WebhookSecret signs the payload with HMAC-SHA256 when set.
	WebhookSecret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             envOr("RISKAI_HOST", "0.0.0.0"),
			Port:             envIntOr("RISKAI_PORT", 8080),
			Mode:             envOr("RISKAI_MODE", "release"),
			BatchConcurrency: envIntOr("RISKAI_BATCH_CONCURRENCY", 4),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("RISKAI_HEADLESS", true),
			PoolSize:      envIntOr("RISKAI_POOL_SIZE", 5),
			DefaultProxy:  os.Getenv("RISKAI_PROXY"),
			NoSandbox:     envBoolOr("RISKAI_NO_SANDBOX", false),
			BrowserBin:    os.Getenv("RISKAI_BROWSER_BIN"),
			HealthTimeout: envDurationOr("RISKAI_HEALTH_TIMEOUT", 2*time.Second),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("RISKAI_DEFAULT_TIMEOUT", 60*time.Second),
			NavigationTimeout: envDurationOr("RISKAI_NAV_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("RISKAI_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockAds:      envBoolOr("RISKAI_BLOCK_ADS", true),
			SimulateHuman: envBoolOr("RISKAI_SIMULATE_HUMAN", true),
		},
		Engine: EngineConfig{
			HTTPTimeout:      envDurationOr("RISKAI_HTTP_TIMEOUT", 15*time.Second),
			MinBodyBytes:     envIntOr("RISKAI_MIN_BODY_BYTES", 1024),
			MaxRedirects:     envIntOr("RISKAI_MAX_REDIRECTS", 5),
			ProtectedDomains: envSliceOr("RISKAI_PROTECTED_DOMAINS", nil),
			MemoryTTL:        envDurationOr("RISKAI_DOMAIN_MEMORY_TTL", 24*time.Hour),
		},
		Bypass: BypassConfig{
			Timeout:      envDurationOr("RISKAI_BYPASS_TIMEOUT", 15*time.Second),
			PollInterval: envDurationOr("RISKAI_BYPASS_POLL", 500*time.Millisecond),
			MinDelay:     envDurationOr("RISKAI_BYPASS_MIN_DELAY", 500*time.Millisecond),
			MaxDelay:     envDurationOr("RISKAI_BYPASS_MAX_DELAY", 2*time.Second),
		},
		Discover: DiscoverConfig{
			MaxContainerTriggers: envIntOr("RISKAI_MAX_CONTAINER_TRIGGERS", 5),
			MaxTotalTriggers:     envIntOr("RISKAI_MAX_TOTAL_TRIGGERS", 50),
			PaginationThreshold:  envIntOr("RISKAI_PAGINATION_THRESHOLD", 20),
			ThrottleEvery:        envIntOr("RISKAI_THROTTLE_EVERY", 10),
			ThrottlePause:        envDurationOr("RISKAI_THROTTLE_PAUSE", time.Second),
			SettleTime:           envDurationOr("RISKAI_SETTLE_TIME", 1500*time.Millisecond),
			MaxLinks:             envIntOr("RISKAI_MAX_LINKS", 200),
		},
		Structure: StructureConfig{
			ExcerptBytes: envIntOr("RISKAI_EXCERPT_BYTES", 30000),
			AIProvider:   os.Getenv("RISKAI_AI_PROVIDER"),
			AIModel:      os.Getenv("RISKAI_AI_MODEL"),
			AIAPIKey:     os.Getenv("RISKAI_AI_API_KEY"),
			AIBaseURL:    envOr("RISKAI_AI_BASE_URL", "https://api.openai.com/v1"),
			AITimeout:    envDurationOr("RISKAI_AI_TIMEOUT", 30*time.Second),
		},
		Extract: ExtractConfig{
			MinParagraphLength: envIntOr("RISKAI_MIN_PARAGRAPH_LENGTH", 80),
			MinContentLength:   envIntOr("RISKAI_MIN_CONTENT_LENGTH", 200),
			Markdown:           envBoolOr("RISKAI_MARKDOWN", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RISKAI_AUTH_ENABLED", true),
			APIKeys: envSliceOr("RISKAI_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RISKAI_RATE_RPS", 5.0),
			Burst:             envIntOr("RISKAI_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RISKAI_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("RISKAI_CACHE_TTL", 72*time.Hour),
		},
		Telemetry: TelemetryConfig{
			WebhookURL:    os.Getenv("RISKAI_TELEMETRY_WEBHOOK"),
			WebhookSecret: os.Getenv("RISKAI_TELEMETRY_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("RISKAI_LOG_LEVEL", "info"),
			Format: envOr("RISKAI_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
