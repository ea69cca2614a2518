package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"
)

const defaultOpenAIModel = "gpt-4o"

type openAIProvider struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
}

func newOpenAIProvider(apiKey, model string) *openAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (p *openAIProvider) Name() ProviderName { return ProviderOpenAI }

func (p *openAIProvider) SupportsImages() bool { return true }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.User),
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(
			openai.ChatCompletionContentPartImageImageURLParam{URL: img.URL}))
	}

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(parts),
		},
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
