package pipeline

import (
	"context"
	"errors"
	"testing"
)

type stubStep struct {
	name string
	err  error
	ran  *[]string
}

func (s *stubStep) Name() string { return s.name }

func (s *stubStep) Run(ctx *Context) error {
	*s.ran = append(*s.ran, s.name)
	return s.err
}

func TestPipelineRunsStepsInOrder(t *testing.T) {
	var ran []string
	p := New(
		&stubStep{name: "a", ran: &ran},
		&stubStep{name: "b", ran: &ran},
		&stubStep{name: "c", ran: &ran},
	)

	ctx := NewContext(context.Background(), &Conversation{}, nil)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(ran) != 3 || ran[0] != "a" || ran[1] != "b" || ran[2] != "c" {
		t.Errorf("unexpected step order: %v", ran)
	}
}

func TestPipelineStopsOnError(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	p := New(
		&stubStep{name: "a", ran: &ran},
		&stubStep{name: "b", err: boom, ran: &ran},
		&stubStep{name: "c", ran: &ran},
	)

	err := p.Run(NewContext(context.Background(), &Conversation{}, nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("expected 2 steps to run, got %v", ran)
	}
}

func TestPipelineSkipIsGraceful(t *testing.T) {
	var ran []string
	p := New(
		&stubStep{name: "a", err: ErrSkipPipeline, ran: &ran},
		&stubStep{name: "b", ran: &ran},
	)

	if err := p.Run(NewContext(context.Background(), &Conversation{}, nil)); err != nil {
		t.Fatalf("skip should not be an error, got %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("expected only the first step to run, got %v", ran)
	}
}

func TestRegistryBuildFromNames(t *testing.T) {
	registry := NewRegistry()
	var ran []string
	registry.Register("one", func(deps *Dependencies) (Step, error) {
		return &stubStep{name: "one", ran: &ran}, nil
	})

	if _, err := registry.BuildFromNames([]string{"one", "missing"}, nil); err == nil {
		t.Fatal("expected error for unknown step")
	}

	p, err := registry.BuildFromNames([]string{"one"}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(p.Steps()) != 1 {
		t.Errorf("expected 1 step, got %d", len(p.Steps()))
	}
}
