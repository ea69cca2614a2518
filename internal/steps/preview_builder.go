package steps

import (
	"fmt"
	"log"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/duplicates"
)

// PreviewBuilder assembles the final preview from the report, labels, and
// duplicate candidates.
type PreviewBuilder struct{}

// NewPreviewBuilder creates the preview step.
func NewPreviewBuilder(deps *pipeline.Dependencies) *PreviewBuilder {
	return &PreviewBuilder{}
}

// Name returns the step name.
func (s *PreviewBuilder) Name() string {
	return "preview_builder"
}

// Run builds ctx.Preview.
func (s *PreviewBuilder) Run(ctx *pipeline.Context) error {
	if ctx.Report == nil {
		return fmt.Errorf("no report to preview")
	}

	ctx.Preview = &pipeline.Preview{
		Report:               ctx.Report,
		Labels:               ctx.Labels,
		Candidates:           ctx.Candidates,
		RequiresConfirmation: duplicates.HasHighConfidence(ctx.Candidates),
	}

	if ctx.Preview.RequiresConfirmation {
		log.Printf("[preview_builder] likely duplicate found, filing will require confirmation")
	}
	return nil
}
