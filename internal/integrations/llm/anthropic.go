package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

type anthropicProvider struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
}

func newAnthropicProvider(apiKey, model string) *anthropicProvider {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (p *anthropicProvider) Name() ProviderName { return ProviderAnthropic }

// SupportsImages is false: image references arrive as URLs and this provider
// only accepts inline image sources, so images are omitted from its payload.
func (p *anthropicProvider) SupportsImages() bool { return false }

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", fmt.Errorf("anthropic returned empty response")
	}
	return resp.Content[0].Text, nil
}
