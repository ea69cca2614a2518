// Package llm extracts structured bug reports from conversation transcripts
// using an LLM provider with failover between OpenAI and Anthropic.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mudlet/bugbot/internal/report"
)

// ProviderName identifies a configured provider.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
)

// Request is a single structured-extraction call.
type Request struct {
	System string
	User   string

	// Images are attached only when the provider supports image parts.
	Images []report.ImageRef
}

// Provider is one configured LLM backend. Implementations are stateless per
// invocation and safe for concurrent use.
type Provider interface {
	Name() ProviderName
	SupportsImages() bool

	// Complete sends the request and returns the raw response text.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures the providers.
type Config struct {
	// Primary is "openai" or "anthropic". The other provider, if its key is
	// configured, becomes the fallback.
	Primary string

	OpenAIKey   string
	OpenAIModel string

	AnthropicKey   string
	AnthropicModel string

	// EnableImages attaches conversation images to providers that accept them.
	EnableImages bool

	Retry RetryConfig
}

// resolveProviders builds the ordered provider list: primary first, then the
// fallback if its key is present.
func resolveProviders(cfg Config) ([]Provider, error) {
	var openAI, anthropic Provider
	if cfg.OpenAIKey != "" {
		openAI = newOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel)
	}
	if cfg.AnthropicKey != "" {
		anthropic = newAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel)
	}

	var ordered []Provider
	switch ProviderName(strings.ToLower(strings.TrimSpace(cfg.Primary))) {
	case ProviderAnthropic:
		for _, p := range []Provider{anthropic, openAI} {
			if p != nil {
				ordered = append(ordered, p)
			}
		}
	case ProviderOpenAI, "":
		for _, p := range []Provider{openAI, anthropic} {
			if p != nil {
				ordered = append(ordered, p)
			}
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (expected openai or anthropic)", cfg.Primary)
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("no LLM provider configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	}
	return ordered, nil
}
