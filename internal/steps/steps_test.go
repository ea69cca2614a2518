package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/mudlet/bugbot/internal/core/config"
	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/duplicates"
	"github.com/mudlet/bugbot/internal/integrations/llm"
	"github.com/mudlet/bugbot/internal/report"
)

type fakeExtractor struct {
	extraction *llm.Extraction
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, messages []report.Message, images []report.ImageRef) (*llm.Extraction, error) {
	return f.extraction, f.err
}

type fakeFinder struct {
	candidates []duplicates.Candidate
	called     bool
}

func (f *fakeFinder) Find(ctx context.Context, rep *report.BugReport, maxResults int) []duplicates.Candidate {
	f.called = true
	return f.candidates
}

type fakeLabelSource struct {
	labels []string
	err    error
}

func (f *fakeLabelSource) ListLabels(ctx context.Context) ([]string, error) {
	return f.labels, f.err
}

func testConfig() *config.Config {
	cfg, _ := config.Load("")
	return cfg
}

func testContext(cfg *config.Config) *pipeline.Context {
	conv := &pipeline.Conversation{
		Messages: []report.Message{
			{Author: "alice", Content: "Mudlet crashes on Windows 11 while mapping"},
		},
		SourceLink: "https://discord.com/channels/1/2/3",
	}
	return pipeline.NewContext(context.Background(), conv, cfg)
}

func TestExtractPopulatesReport(t *testing.T) {
	deps := &pipeline.Dependencies{
		Extractor: &fakeExtractor{extraction: &llm.Extraction{
			Summary: "Crash on Windows 11 while mapping",
			Steps:   []string{"Open mapper", "Crash"},
		}},
	}
	ctx := testContext(testConfig())

	if err := NewExtract(deps).Run(ctx); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if ctx.Report == nil {
		t.Fatal("report not set")
	}
	if ctx.Report.Summary != "Crash on Windows 11 while mapping" {
		t.Errorf("unexpected summary: %q", ctx.Report.Summary)
	}
	if ctx.Report.SourceLink != "https://discord.com/channels/1/2/3" {
		t.Errorf("source link not carried: %q", ctx.Report.SourceLink)
	}
	if ctx.Report.RawConversation == "" {
		t.Error("raw conversation not captured")
	}
}

func TestExtractFailurePropagates(t *testing.T) {
	deps := &pipeline.Dependencies{
		Extractor: &fakeExtractor{err: llm.ErrExtractionFailed},
	}
	ctx := testContext(testConfig())

	err := NewExtract(deps).Run(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, llm.ErrExtractionFailed) {
		t.Errorf("expected wrapped ErrExtractionFailed, got %v", err)
	}
}

func TestExtractRejectsEmptyConversation(t *testing.T) {
	deps := &pipeline.Dependencies{Extractor: &fakeExtractor{}}
	ctx := pipeline.NewContext(context.Background(), &pipeline.Conversation{}, testConfig())

	if err := NewExtract(deps).Run(ctx); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestAnalyzeSetsLabelsAndCandidates(t *testing.T) {
	finder := &fakeFinder{candidates: []duplicates.Candidate{
		{Number: 42, Title: "Mapper crash", Score: 0.9, State: "open", HighConfidence: true},
	}}
	deps := &pipeline.Dependencies{
		Finder: finder,
		Labels: &fakeLabelSource{labels: []string{"OS:Windows", "mapper bug", "high"}},
	}
	ctx := testContext(testConfig())
	ctx.Report = &report.BugReport{
		Summary: "Crash on Windows 11 while mapping",
		Steps:   []string{"open the mapper and watch it crash"},
	}

	if err := NewAnalyze(deps).Run(ctx); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	want := []string{"OS:Windows", "high", "mapper bug"}
	if len(ctx.Labels) != len(want) {
		t.Fatalf("expected labels %v, got %v", want, ctx.Labels)
	}
	for i, l := range want {
		if ctx.Labels[i] != l {
			t.Errorf("label[%d]: expected %q, got %q", i, l, ctx.Labels[i])
		}
	}
	if len(ctx.Candidates) != 1 || ctx.Candidates[0].Number != 42 {
		t.Errorf("unexpected candidates: %v", ctx.Candidates)
	}
}

func TestAnalyzeLabelFailureDoesNotBlock(t *testing.T) {
	deps := &pipeline.Dependencies{
		Finder: &fakeFinder{},
		Labels: &fakeLabelSource{err: errors.New("boom")},
	}
	ctx := testContext(testConfig())
	ctx.Report = &report.BugReport{Summary: "Crash on Windows"}

	if err := NewAnalyze(deps).Run(ctx); err != nil {
		t.Fatalf("analyze should degrade, got %v", err)
	}
	if len(ctx.Labels) != 0 {
		t.Errorf("expected no labels, got %v", ctx.Labels)
	}
}

func TestAnalyzeSkipsDuplicatesWhenDisabled(t *testing.T) {
	finder := &fakeFinder{candidates: []duplicates.Candidate{{Number: 1}}}
	deps := &pipeline.Dependencies{
		Finder: finder,
		Labels: &fakeLabelSource{},
	}
	cfg := testConfig()
	cfg.Duplicates.Enabled = false
	ctx := testContext(cfg)
	ctx.Report = &report.BugReport{Summary: "Crash"}

	if err := NewAnalyze(deps).Run(ctx); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if finder.called {
		t.Error("finder called despite duplicate detection being disabled")
	}
	if ctx.Candidates != nil {
		t.Errorf("expected no candidates, got %v", ctx.Candidates)
	}
}

func TestPreviewBuilderFlagsConfirmation(t *testing.T) {
	deps := &pipeline.Dependencies{}
	ctx := testContext(testConfig())
	ctx.Report = &report.BugReport{Summary: "Crash"}
	ctx.Candidates = []duplicates.Candidate{
		{Number: 7, Score: 0.91, State: "open", HighConfidence: true},
	}

	if err := NewPreviewBuilder(deps).Run(ctx); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if ctx.Preview == nil {
		t.Fatal("preview not set")
	}
	if !ctx.Preview.RequiresConfirmation {
		t.Error("expected confirmation to be required")
	}
}

func TestFullPipelineViaRegistry(t *testing.T) {
	deps := &pipeline.Dependencies{
		Extractor: &fakeExtractor{extraction: &llm.Extraction{
			Summary: "Crash on Windows 11 while mapping",
		}},
		Finder: &fakeFinder{},
		Labels: &fakeLabelSource{labels: []string{"OS:Windows", "mapper bug", "high"}},
		Config: testConfig(),
	}

	registry := pipeline.NewRegistry()
	RegisterAll(registry)

	p, err := registry.BuildFromNames(pipeline.DefaultSteps, deps)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx := testContext(deps.Config)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if ctx.Preview == nil {
		t.Fatal("pipeline produced no preview")
	}
	if ctx.Preview.Report.Summary != "Crash on Windows 11 while mapping" {
		t.Errorf("unexpected summary: %q", ctx.Preview.Report.Summary)
	}
	if ctx.Preview.RequiresConfirmation {
		t.Error("no duplicates, confirmation should not be required")
	}
}
