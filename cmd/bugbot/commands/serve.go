package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/core/session"
	"github.com/mudlet/bugbot/internal/duplicates"
	"github.com/mudlet/bugbot/internal/health"
	"github.com/mudlet/bugbot/internal/integrations/discord"
	"github.com/mudlet/bugbot/internal/integrations/github"
	"github.com/mudlet/bugbot/internal/integrations/llm"
	"github.com/mudlet/bugbot/internal/steps"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot and health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("[config] %s", e)
		}
		return fmt.Errorf("configuration is incomplete, refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := github.NewClient(ctx, github.Credentials{
		Token:          cfg.GitHub.Token,
		AppID:          cfg.GitHub.AppID,
		InstallationID: cfg.GitHub.InstallationID,
		PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
	}, cfg.GitHub.Repo)
	if err != nil {
		return fmt.Errorf("failed to create tracker client: %w", err)
	}

	extractor, err := llm.NewService(llm.Config{
		Primary:        cfg.LLM.Provider,
		OpenAIKey:      cfg.LLM.OpenAIKey,
		OpenAIModel:    cfg.LLM.OpenAIModel,
		AnthropicKey:   cfg.LLM.AnthropicKey,
		AnthropicModel: cfg.LLM.AnthropicModel,
		EnableImages:   cfg.LLM.EnableImageAnalysis,
	})
	if err != nil {
		return fmt.Errorf("failed to create extraction service: %w", err)
	}

	finder := duplicates.NewFinder(tracker, nil, cfg.Duplicates.HighConfidenceThreshold)

	deps := &pipeline.Dependencies{
		Extractor: extractor,
		Finder:    finder,
		Labels:    tracker,
		Config:    cfg,
	}
	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	sessions := session.NewStore()
	go sessions.RunSweeper(ctx, time.Minute)

	bot, err := discord.New(cfg, registry, deps, tracker, sessions)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	if err := bot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}
	defer bot.Stop()

	healthSrv := health.NewServer(cfg.Health.Port, bot)
	go func() {
		if err := healthSrv.Start(); err != nil {
			log.Printf("[serve] %v", err)
		}
	}()

	log.Printf("[serve] bugbot running, filing to %s", cfg.GitHub.Repo)
	<-ctx.Done()

	log.Printf("[serve] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[serve] health shutdown: %v", err)
	}
	return nil
}
