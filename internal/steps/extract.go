// Package steps provides the built-in pipeline steps that turn a fetched
// conversation into a filing preview.
package steps

import (
	"fmt"
	"log"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/report"
)

// Extract runs the conversation through the LLM extraction service and
// populates the structured bug report.
type Extract struct {
	extractor pipeline.Extractor
}

// NewExtract creates the extraction step.
func NewExtract(deps *pipeline.Dependencies) *Extract {
	return &Extract{extractor: deps.Extractor}
}

// Name returns the step name.
func (s *Extract) Name() string {
	return "extract"
}

// Run extracts a structured report from the conversation.
func (s *Extract) Run(ctx *pipeline.Context) error {
	conv := ctx.Conversation
	if conv == nil || len(conv.Messages) == 0 {
		return fmt.Errorf("no conversation to process")
	}

	extraction, err := s.extractor.Extract(ctx.Ctx, conv.Messages, conv.Images)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	ctx.Report = &report.BugReport{
		Summary:         extraction.Summary,
		Steps:           extraction.Steps,
		ErrorOutput:     extraction.ErrorOutput,
		ExtraInfo:       extraction.ExtraInfo,
		Confidence:      extraction.Confidence,
		MissingInfo:     extraction.MissingInfo,
		SourceLink:      conv.SourceLink,
		RawConversation: report.FormatConversation(conv.Messages),
	}

	log.Printf("[extract] extracted report: %q", ctx.Report.Title())
	return nil
}
