package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Browser.PoolSize)
	assert.Equal(t, 15*time.Second, cfg.Bypass.Timeout)
	assert.Equal(t, 5, cfg.Discover.MaxContainerTriggers)
	assert.Equal(t, 50, cfg.Discover.MaxTotalTriggers)
	assert.Equal(t, 20, cfg.Discover.PaginationThreshold)
	assert.Equal(t, 72*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes)
	assert.True(t, cfg.Auth.Enabled)
	assert.Empty(t, cfg.Structure.AIProvider)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RISKAI_PORT", "9090")
	t.Setenv("RISKAI_HEADLESS", "false")
	t.Setenv("RISKAI_BYPASS_TIMEOUT", "20s")
	t.Setenv("RISKAI_RATE_RPS", "2.5")
	t.Setenv("RISKAI_PROTECTED_DOMAINS", " example.com, *.cdn.example ,,")
	t.Setenv("RISKAI_AI_PROVIDER", "anthropic")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 20*time.Second, cfg.Bypass.Timeout)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, []string{"example.com", "*.cdn.example"}, cfg.Engine.ProtectedDomains)
	assert.Equal(t, "anthropic", cfg.Structure.AIProvider)
}

func TestLoadIgnoresMalformed(t *testing.T) {
	t.Setenv("RISKAI_PORT", "eighty")
	t.Setenv("RISKAI_HEADLESS", "maybe")
	t.Setenv("RISKAI_CACHE_TTL", "3 days")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 72*time.Hour, cfg.Cache.TTL)
}
