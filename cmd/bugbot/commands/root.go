// Package commands implements the bugbot CLI commands.
package commands

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mudlet/bugbot/internal/core/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bugbot",
	Short: "Files Mudlet bug reports from Discord conversations",
	Long: `bugbot reads Discord conversations, extracts a structured bug
report with an LLM, checks the tracker for duplicates, and files an issue
after the reporter confirms a preview.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default .github/bugbot.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

// loadConfig loads the .env file if present, then the config file and
// environment.
func loadConfig() (*config.Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load(config.FindConfigPath(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	return cfg, nil
}
