package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/duplicates"
	"github.com/mudlet/bugbot/internal/integrations/github"
	"github.com/mudlet/bugbot/internal/integrations/llm"
	"github.com/mudlet/bugbot/internal/report"
	"github.com/mudlet/bugbot/internal/steps"
	"github.com/mudlet/bugbot/internal/tui"
)

var (
	transcriptFile string
	sourceLink     string
	previewDryRun  bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run the filing pipeline on a saved transcript",
	Long: `Runs extraction, labelling, and duplicate detection on a transcript
file and shows the result in an interactive preview. Each transcript line is
"author: message"; lines without a colon continue the previous message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview()
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&transcriptFile, "file", "", "Path to transcript file (required)")
	previewCmd.Flags().StringVar(&sourceLink, "link", "", "Link to the original conversation")
	previewCmd.Flags().BoolVar(&previewDryRun, "dry-run", false, "Never file, preview only")
	previewCmd.MarkFlagRequired("file")
}

func runPreview() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LLM.OpenAIKey == "" && cfg.LLM.AnthropicKey == "" {
		return fmt.Errorf("at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
	}

	messages, err := readTranscript(transcriptFile)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var tracker *github.Client
	if cfg.GitHub.Token != "" || cfg.GitHub.AppID != 0 {
		tracker, err = github.NewClient(ctx, github.Credentials{
			Token:          cfg.GitHub.Token,
			AppID:          cfg.GitHub.AppID,
			InstallationID: cfg.GitHub.InstallationID,
			PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
		}, cfg.GitHub.Repo)
		if err != nil {
			return fmt.Errorf("failed to create tracker client: %w", err)
		}
	}

	extractor, err := llm.NewService(llm.Config{
		Primary:        cfg.LLM.Provider,
		OpenAIKey:      cfg.LLM.OpenAIKey,
		OpenAIModel:    cfg.LLM.OpenAIModel,
		AnthropicKey:   cfg.LLM.AnthropicKey,
		AnthropicModel: cfg.LLM.AnthropicModel,
		EnableImages:   false,
	})
	if err != nil {
		return fmt.Errorf("failed to create extraction service: %w", err)
	}

	deps := &pipeline.Dependencies{
		Extractor: extractor,
		Config:    cfg,
	}
	if tracker != nil {
		deps.Finder = duplicates.NewFinder(tracker, nil, cfg.Duplicates.HighConfidenceThreshold)
		deps.Labels = tracker
	} else {
		// Without tracker credentials there is nothing to search or label
		// against.
		cfg.Duplicates.Enabled = false
		deps.Finder = noFinder{}
		deps.Labels = noLabels{}
	}

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	p, err := registry.BuildFromNames(pipeline.DefaultSteps, deps)
	if err != nil {
		return err
	}

	pctx := pipeline.NewContext(ctx, &pipeline.Conversation{
		Messages:   messages,
		SourceLink: sourceLink,
	}, cfg)
	if err := p.Run(pctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	if pctx.Preview == nil {
		return fmt.Errorf("pipeline produced no preview")
	}

	var file tui.FileFunc
	if tracker != nil && !previewDryRun {
		rep := pctx.Preview.Report
		labels := pctx.Preview.Labels
		file = func() (string, error) {
			ref, err := tracker.CreateIssue(context.Background(), rep.Title(), rep.IssueBody(), labels)
			if err != nil {
				return "", err
			}
			return ref.URL, nil
		}
	}

	_, err = tea.NewProgram(tui.NewModel(pctx.Preview, file)).Run()
	return err
}

// readTranscript parses an "author: message" transcript file.
func readTranscript(path string) ([]report.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	var messages []report.Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		author, content, ok := strings.Cut(line, ":")
		if ok && author != "" && !strings.ContainsAny(author, " \t") {
			messages = append(messages, report.Message{
				Author:  author,
				Content: strings.TrimSpace(content),
			})
			continue
		}
		if len(messages) > 0 {
			messages[len(messages)-1].Content += "\n" + line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("transcript %s contains no messages", path)
	}
	return messages, nil
}

type noFinder struct{}

func (noFinder) Find(ctx context.Context, rep *report.BugReport, maxResults int) []duplicates.Candidate {
	return nil
}

type noLabels struct{}

func (noLabels) ListLabels(ctx context.Context) ([]string, error) {
	return nil, nil
}
