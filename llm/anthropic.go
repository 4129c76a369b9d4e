package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/structure"
)

const anthropicMaxTokens = 512

// Anthropic infers selectors through the Messages API.
type Anthropic struct {
	client sdk.Client
	model  string
}

// NewAnthropic creates an Anthropic inferer. Extra options are passed to the
// SDK client (base URL, retries, HTTP client).
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

// InferSelectors asks the model for the article selectors of the excerpt.
func (a *Anthropic) InferSelectors(ctx context.Context, req structure.SelectorRequest) (*structure.RawSelectors, error) {
	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   anthropicMaxTokens,
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(userPrompt(req)))},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			se := classifyStatus(apiErr.StatusCode, apiErr.Error())
			se.Err = err
			return nil, se
		}
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	slog.Debug("selector inference",
		"provider", ProviderAnthropic,
		"model", a.model,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
	return parseSelectors(text.String())
}
