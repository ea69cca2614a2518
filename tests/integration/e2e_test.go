package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mudlet/bugbot/internal/core/config"
	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/core/session"
	"github.com/mudlet/bugbot/internal/duplicates"
	"github.com/mudlet/bugbot/internal/integrations/github"
	"github.com/mudlet/bugbot/internal/integrations/llm"
	"github.com/mudlet/bugbot/internal/report"
	"github.com/mudlet/bugbot/internal/steps"
)

// The end-to-end tests run the whole filing pipeline with fake collaborators
// standing in for the LLM and the tracker.

type fakeExtractor struct {
	extraction *llm.Extraction
}

func (f *fakeExtractor) Extract(ctx context.Context, messages []report.Message, images []report.ImageRef) (*llm.Extraction, error) {
	return f.extraction, nil
}

type fakeLabels struct {
	labels []string
	calls  int
}

func (f *fakeLabels) ListLabels(ctx context.Context) ([]string, error) {
	f.calls++
	return f.labels, nil
}

type fakeSearcher struct {
	results []github.IssueSummary
	calls   int
}

func (f *fakeSearcher) SearchIssues(ctx context.Context, keywords []string, maxResults int) ([]github.IssueSummary, error) {
	f.calls++
	return f.results, nil
}

func runFiling(t *testing.T, extraction *llm.Extraction, hits []github.IssueSummary) *pipeline.Context {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	deps := &pipeline.Dependencies{
		Extractor: &fakeExtractor{extraction: extraction},
		Finder:    duplicates.NewFinder(&fakeSearcher{results: hits}, nil, 0),
		Labels: &fakeLabels{labels: []string{
			"OS:Windows", "OS:macOS", "OS:GNU/Linux", "mapper bug", "high", "regression",
		}},
		Config: cfg,
	}

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	p, err := registry.BuildFromNames(pipeline.DefaultSteps, deps)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx := pipeline.NewContext(context.Background(), &pipeline.Conversation{
		Messages: []report.Message{
			{Author: "alice", Content: "Mudlet crashes on Windows 11 while mapping"},
			{Author: "bob", Content: "same here, mapper closes the whole client"},
		},
		SourceLink: "https://discord.com/channels/1/2/3",
	}, cfg)

	if err := p.Run(ctx); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if ctx.Preview == nil {
		t.Fatal("pipeline produced no preview")
	}
	return ctx
}

func TestFilingPipelineLabelsWindowsMapperCrash(t *testing.T) {
	ctx := runFiling(t, &llm.Extraction{
		Summary: "Crash on Windows 11 while using the mapper",
		Steps:   []string{"Open the mapper", "Load a profile", "Mudlet crashes"},
	}, nil)

	want := map[string]bool{"OS:Windows": true, "high": true, "mapper bug": true}
	if len(ctx.Preview.Labels) != len(want) {
		t.Fatalf("expected labels %v, got %v", want, ctx.Preview.Labels)
	}
	for _, l := range ctx.Preview.Labels {
		if !want[l] {
			t.Errorf("unexpected label %q", l)
		}
	}
	if ctx.Preview.RequiresConfirmation {
		t.Error("no duplicates, confirmation should not be required")
	}
}

func TestFilingPipelineIssueBody(t *testing.T) {
	ctx := runFiling(t, &llm.Extraction{
		Summary:     "Crash on Windows 11 while using the mapper",
		Steps:       []string{"Open the mapper"},
		ErrorOutput: "",
		ExtraInfo:   "Mudlet 4.17.2",
	}, nil)

	body := ctx.Preview.Report.IssueBody()
	for _, fragment := range []string{
		"#### Brief summary",
		"#### Steps to reproduce",
		"#### Error output",
		"N/A",
		"Mudlet 4.17.2",
		"[Original conversation](https://discord.com/channels/1/2/3)",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("issue body missing %q:\n%s", fragment, body)
		}
	}
}

func TestConfirmationFlowWithLikelyDuplicate(t *testing.T) {
	hits := []github.IssueSummary{
		{
			Number:    4242,
			Title:     "Crash on Windows 11 while using the mapper",
			URL:       "https://github.com/Mudlet/Mudlet/issues/4242",
			State:     "open",
			UpdatedAt: time.Now(),
		},
	}
	ctx := runFiling(t, &llm.Extraction{
		Summary: "Crash on Windows 11 while using the mapper",
		Steps:   []string{"Open the mapper"},
	}, hits)

	if !ctx.Preview.RequiresConfirmation {
		t.Fatal("expected confirmation to be required for a near-identical open issue")
	}

	store := session.NewStore()
	sess := session.New("user1", "chan1", ctx.Preview, time.Minute)
	store.Put(sess)

	if got := sess.RequestFile(); got != session.DecisionNeedsConfirm {
		t.Fatalf("first file press: expected DecisionNeedsConfirm, got %v", got)
	}
	if got := sess.RequestFile(); got != session.DecisionProceed {
		t.Fatalf("second file press: expected DecisionProceed, got %v", got)
	}
	if sess.State() != session.StateFiled {
		t.Errorf("expected filed state, got %v", sess.State())
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, messages []report.Message, images []report.ImageRef) (*llm.Extraction, error) {
	return nil, llm.ErrExtractionFailed
}

func TestExtractionFailureMakesNoTrackerCalls(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	searcher := &fakeSearcher{}
	labelSource := &fakeLabels{}
	deps := &pipeline.Dependencies{
		Extractor: failingExtractor{},
		Finder:    duplicates.NewFinder(searcher, nil, 0),
		Labels:    labelSource,
		Config:    cfg,
	}

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)
	p, err := registry.BuildFromNames(pipeline.DefaultSteps, deps)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx := pipeline.NewContext(context.Background(), &pipeline.Conversation{
		Messages: []report.Message{{Author: "alice", Content: "it broke"}},
	}, cfg)

	if err := p.Run(ctx); err == nil {
		t.Fatal("expected pipeline to fail when extraction fails")
	}
	if ctx.Preview != nil {
		t.Error("no preview should exist after extraction failure")
	}
	if searcher.calls != 0 {
		t.Errorf("duplicate search ran %d times despite extraction failure", searcher.calls)
	}
	if labelSource.calls != 0 {
		t.Errorf("label listing ran %d times despite extraction failure", labelSource.calls)
	}
}

func TestCancelLeavesNothingFiled(t *testing.T) {
	ctx := runFiling(t, &llm.Extraction{
		Summary: "Crash on Windows 11 while using the mapper",
	}, nil)

	sess := session.New("user1", "chan1", ctx.Preview, time.Minute)
	sess.Cancel()

	if got := sess.RequestFile(); got != session.DecisionRejected {
		t.Errorf("expected DecisionRejected after cancel, got %v", got)
	}
}
