// Package pipeline provides the step engine that turns a fetched
// conversation into a reviewable filing preview. It defines the Step
// interface and the Context passed between steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mudlet/bugbot/internal/core/config"
	"github.com/mudlet/bugbot/internal/duplicates"
	"github.com/mudlet/bugbot/internal/integrations/llm"
	"github.com/mudlet/bugbot/internal/report"
)

// ErrSkipPipeline indicates that the pipeline should stop gracefully.
// This is not an error condition, just an early exit.
var ErrSkipPipeline = errors.New("skip remaining pipeline steps")

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Name returns the unique identifier for this step.
	Name() string

	// Run executes the step's logic. It should return ErrSkipPipeline to
	// stop the pipeline gracefully, or any other error to indicate failure.
	Run(ctx *Context) error
}

// Conversation is the fetched message history being processed.
type Conversation struct {
	Messages []report.Message
	Images   []report.ImageRef

	// SourceLink is the permalink to the first message.
	SourceLink string
}

// Preview is the final pipeline product: everything the requester reviews
// before deciding to file or cancel.
type Preview struct {
	Report     *report.BugReport
	Labels     []string
	Candidates []duplicates.Candidate

	// RequiresConfirmation is set when a high-confidence duplicate exists;
	// filing then needs a second explicit confirmation.
	RequiresConfirmation bool
}

// Context carries data through the pipeline steps. Each invocation gets its
// own Context; steps never share mutable state across invocations.
type Context struct {
	// Ctx is the Go context for cancellation and timeouts.
	Ctx context.Context

	// Conversation is the input being processed.
	Conversation *Conversation

	// Config is the loaded configuration.
	Config *config.Config

	// Report is set by the extraction step.
	Report *report.BugReport

	// Labels is set by the analysis step, already validated against the
	// tracker's known labels.
	Labels []string

	// Candidates is set by the analysis step, sorted by descending score.
	Candidates []duplicates.Candidate

	// Preview is set by the preview step.
	Preview *Preview

	// Metadata allows steps to pass arbitrary data to subsequent steps.
	Metadata map[string]interface{}
}

// NewContext creates a new pipeline context for a conversation.
func NewContext(ctx context.Context, conv *Conversation, cfg *config.Config) *Context {
	return &Context{
		Ctx:          ctx,
		Conversation: conv,
		Config:       cfg,
		Metadata:     make(map[string]interface{}),
	}
}

// Extractor turns a conversation into a structured extraction.
type Extractor interface {
	Extract(ctx context.Context, messages []report.Message, images []report.ImageRef) (*llm.Extraction, error)
}

// DuplicateFinder searches the tracker for candidate duplicates.
type DuplicateFinder interface {
	Find(ctx context.Context, rep *report.BugReport, maxResults int) []duplicates.Candidate
}

// LabelSource lists the tracker's known label names.
type LabelSource interface {
	ListLabels(ctx context.Context) ([]string, error)
}

// Dependencies holds the collaborators injected into steps.
type Dependencies struct {
	Extractor Extractor
	Finder    DuplicateFinder
	Labels    LabelSource
	Config    *config.Config
}

// Pipeline executes a sequence of steps.
type Pipeline struct {
	steps []Step
}

// New creates a new pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Run executes all steps in order. Stops on the first error (unless it's
// ErrSkipPipeline, which is graceful).
func (p *Pipeline) Run(ctx *Context) error {
	for _, step := range p.steps {
		if err := step.Run(ctx); err != nil {
			if errors.Is(err, ErrSkipPipeline) {
				return nil
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name(), err)
		}
	}
	return nil
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Steps returns the list of steps (for introspection).
func (p *Pipeline) Steps() []Step {
	return p.steps
}
