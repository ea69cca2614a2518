package steps

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/labels"
)

// Analyze classifies labels and searches for duplicate candidates. The two
// lookups are independent and run concurrently.
type Analyze struct {
	finder pipeline.DuplicateFinder
	labels pipeline.LabelSource
}

// NewAnalyze creates the analysis step.
func NewAnalyze(deps *pipeline.Dependencies) *Analyze {
	return &Analyze{
		finder: deps.Finder,
		labels: deps.Labels,
	}
}

// Name returns the step name.
func (s *Analyze) Name() string {
	return "analyze"
}

// Run populates ctx.Labels and ctx.Candidates.
func (s *Analyze) Run(ctx *pipeline.Context) error {
	if ctx.Report == nil {
		return fmt.Errorf("no report to analyze")
	}

	text := ctx.Report.Summary + "\n" + strings.Join(ctx.Report.Steps, "\n") + "\n" + ctx.Report.ExtraInfo
	detected := labels.Detect(text)

	g, gctx := errgroup.WithContext(ctx.Ctx)

	g.Go(func() error {
		if len(detected) == 0 {
			return nil
		}
		valid, err := s.labels.ListLabels(gctx)
		if err != nil {
			// A label lookup failure must not block filing. The report
			// just goes out unlabelled.
			log.Printf("[analyze] label listing failed, filing without labels: %v", err)
			return nil
		}
		ctx.Labels = labels.Filter(detected, valid)
		return nil
	})

	g.Go(func() error {
		if !ctx.Config.Duplicates.Enabled {
			log.Printf("[analyze] duplicate detection disabled")
			return nil
		}
		// Find degrades to no candidates on search failure.
		ctx.Candidates = s.finder.Find(gctx, ctx.Report, ctx.Config.Duplicates.MaxResults)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("[analyze] %d labels, %d duplicate candidates", len(ctx.Labels), len(ctx.Candidates))
	return nil
}
