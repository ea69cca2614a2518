package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/mudlet/bugbot/internal/report"
)

// ErrExtractionFailed is returned when every configured provider has been
// exhausted or no provider produced a schema-conforming response.
var ErrExtractionFailed = errors.New("bug report extraction failed")

// Extraction is the model's structured output.
type Extraction struct {
	Summary     string   `json:"summary"`
	Steps       []string `json:"steps"`
	ErrorOutput string   `json:"error_output"`
	ExtraInfo   string   `json:"extra_info"`
	Confidence  string   `json:"confidence"`
	MissingInfo string   `json:"missing_info"`
}

// Service performs conversation-to-report extraction with provider failover.
// It holds no per-invocation state and is safe for concurrent use.
type Service struct {
	providers    []Provider
	retry        RetryConfig
	enableImages bool
}

// NewService builds the extraction service from configuration. At least one
// provider key must be present.
func NewService(cfg Config) (*Service, error) {
	providers, err := resolveProviders(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		providers:    providers,
		retry:        cfg.Retry.withDefaults(),
		enableImages: cfg.EnableImages,
	}, nil
}

// newServiceWithProviders is the test seam: it bypasses SDK construction.
func newServiceWithProviders(providers []Provider, retry RetryConfig, images bool) *Service {
	return &Service{providers: providers, retry: retry.withDefaults(), enableImages: images}
}

// Extract runs the conversation through the provider chain and returns the
// validated extraction. Each provider gets its in-provider retry before the
// service fails over to the next; exhausting the chain yields
// ErrExtractionFailed.
func (s *Service) Extract(ctx context.Context, messages []report.Message, images []report.ImageRef) (*Extraction, error) {
	conversation := report.FormatConversation(messages)
	if strings.TrimSpace(conversation) == "" {
		return nil, fmt.Errorf("%w: conversation has no text content", ErrExtractionFailed)
	}

	req := Request{
		System: extractionSystemPrompt,
		User:   buildUserPrompt(conversation),
	}

	var lastErr error
	for _, provider := range s.providers {
		provReq := req
		if s.enableImages && provider.SupportsImages() {
			provReq.Images = images
		}

		log.Printf("[llm] Attempting extraction with %s", provider.Name())
		response, err := withRetry(ctx, s.retry, string(provider.Name()), func() (string, error) {
			return provider.Complete(ctx, provReq)
		})
		if err != nil {
			lastErr = err
			log.Printf("[llm] %s failed: %v, trying next provider", provider.Name(), err)
			continue
		}

		extraction, err := ParseExtraction(response)
		if err != nil {
			lastErr = err
			log.Printf("[llm] %s returned a non-conforming response: %v, trying next provider", provider.Name(), err)
			continue
		}

		log.Printf("[llm] Extracted bug report using %s (confidence: %s)", provider.Name(), extraction.Confidence)
		return extraction, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, lastErr)
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ParseExtraction decodes the model's JSON output, tolerating markdown code
// fences. A response missing a non-empty summary does not conform to the
// schema and is rejected.
func ParseExtraction(response string) (*Extraction, error) {
	text := strings.TrimSpace(response)
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var extraction Extraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response as JSON: %w", err)
	}

	if strings.TrimSpace(extraction.Summary) == "" {
		return nil, fmt.Errorf("extraction response missing required summary")
	}
	return &extraction, nil
}
