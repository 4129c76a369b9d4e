// Package llm implements structure.Inferer against hosted language models.
// Both providers receive the same prompt and must answer with a single JSON
// object naming the article selectors.
package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/structure"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5"
)

// New returns the Inferer configured by cfg, or nil when no provider is set.
func New(cfg config.StructureConfig, httpClient *http.Client) (structure.Inferer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "":
		return nil, nil
	case ProviderOpenAI:
		if cfg.AIAPIKey == "" {
			return nil, fmt.Errorf("llm: %s provider requires an API key", ProviderOpenAI)
		}
		return NewClient(httpClient, Params{
			APIKey:  cfg.AIAPIKey,
			Model:   modelOr(cfg.AIModel, defaultOpenAIModel),
			BaseURL: cfg.AIBaseURL,
		}), nil
	case ProviderAnthropic:
		if cfg.AIAPIKey == "" {
			return nil, fmt.Errorf("llm: %s provider requires an API key", ProviderAnthropic)
		}
		return NewAnthropic(cfg.AIAPIKey, modelOr(cfg.AIModel, defaultAnthropicModel)), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.AIProvider)
	}
}

func modelOr(model, fallback string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	return fallback
}

const systemPrompt = `You locate article fields in HTML. Given an excerpt of a news or blog article page, return the CSS selectors that select:
- titleSelector: the element holding the article headline
- contentSelector: the element wrapping the article body paragraphs
- authorSelector: the element holding the author name
- dateSelector: the element holding the publish date

Rules:
- Return ONLY a JSON object with exactly those four keys, no markdown fences or explanation.
- Use plain CSS selectors (tags, classes, ids, attributes). Never return JavaScript or XPath.
- Prefer stable class or attribute selectors over positional ones.
- If a field cannot be found, use an empty string.`

func userPrompt(req structure.SelectorRequest) string {
	return fmt.Sprintf("URL: %s\n\nHTML:\n%s", req.URL, req.HTMLExcerpt)
}

// parseSelectors decodes the model answer. Some models wrap JSON in a code
// fence or add prose around it, so only the outermost object is decoded.
func parseSelectors(raw string) (*structure.RawSelectors, error) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no JSON object", nil)
	}

	var out structure.RawSelectors
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned invalid JSON", err)
	}
	return &out, nil
}

// classifyStatus maps a provider HTTP status to an LLM error code.
func classifyStatus(statusCode int, msg string) *models.ScrapeError {
	if msg == "" {
		msg = "LLM API error"
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
