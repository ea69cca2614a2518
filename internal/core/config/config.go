// Package config handles loading and merging bugbot configuration from an
// optional YAML file and the environment. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	// Discord configures the chat-platform connection.
	Discord DiscordConfig `yaml:"discord"`

	// LLM configures the extraction providers.
	LLM LLMConfig `yaml:"llm"`

	// GitHub configures the issue tracker.
	GitHub GitHubConfig `yaml:"github"`

	// Duplicates configures duplicate detection.
	Duplicates DuplicatesConfig `yaml:"duplicates"`

	// Preview configures the interactive preview window.
	Preview PreviewConfig `yaml:"preview"`

	// Health configures the health endpoint.
	Health HealthConfig `yaml:"health"`

	// LogLevel is "debug" or "info".
	LogLevel string `yaml:"log_level"`
}

// DiscordConfig holds chat-platform settings.
type DiscordConfig struct {
	Token       string `yaml:"token"`
	TestGuildID string `yaml:"test_guild_id"`
	// AllowedRoles restricts /bug to members holding any listed role.
	// Empty means everyone.
	AllowedRoles []string `yaml:"allowed_roles"`
}

// LLMConfig holds extraction provider settings.
type LLMConfig struct {
	// Provider selects the primary: "openai" or "anthropic".
	Provider       string `yaml:"provider"`
	OpenAIKey      string `yaml:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model"`
	AnthropicKey   string `yaml:"anthropic_api_key"`
	AnthropicModel string `yaml:"anthropic_model"`

	EnableImageAnalysis bool `yaml:"enable_image_analysis"`
}

// GitHubConfig holds tracker credentials and the target repository.
type GitHubConfig struct {
	Token          string `yaml:"token"`
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	Repo           string `yaml:"repo"`
}

// DuplicatesConfig holds duplicate detection settings.
type DuplicatesConfig struct {
	Enabled                 bool    `yaml:"enabled"`
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold"`
	MaxResults              int     `yaml:"max_results"`
}

// PreviewConfig holds the interactive preview settings.
type PreviewConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes"`
}

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// Load reads a config file, expands environment variable references in its
// content, overlays process environment variables, and applies defaults.
// A missing path loads from environment alone.
func Load(path string) (*Config, error) {
	// Boolean defaults are set before parsing so a config file or the
	// environment can still turn them off.
	cfg := &Config{
		Duplicates: DuplicatesConfig{Enabled: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// FindConfigPath searches for a config file in standard locations.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	candidates := []string{
		".github/bugbot.yaml",
		".github/bugbot.yml",
		".bugbot.yaml",
		".bugbot.yml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			return abs
		}
	}
	return ""
}

// applyEnv overlays process environment variables onto the config.
// The variable names match the original deployment's environment.
func (c *Config) applyEnv() {
	setString(&c.Discord.Token, "DISCORD_BOT_TOKEN")
	setString(&c.Discord.TestGuildID, "DISCORD_TEST_GUILD_ID")
	if roles := os.Getenv("BUG_COMMAND_ROLES"); roles != "" {
		c.Discord.AllowedRoles = splitCSV(roles)
	}

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setBool(&c.LLM.EnableImageAnalysis, "ENABLE_IMAGE_ANALYSIS")

	setString(&c.GitHub.Token, "GITHUB_TOKEN")
	setInt64(&c.GitHub.AppID, "GITHUB_APP_ID")
	setInt64(&c.GitHub.InstallationID, "GITHUB_INSTALLATION_ID")
	setString(&c.GitHub.PrivateKeyPath, "GITHUB_PRIVATE_KEY_PATH")
	setString(&c.GitHub.Repo, "GITHUB_REPO")

	setBool(&c.Duplicates.Enabled, "ENABLE_DUPLICATE_DETECTION")

	setInt(&c.Health.Port, "HEALTH_PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.GitHub.Repo == "" {
		c.GitHub.Repo = "Mudlet/Mudlet"
	}
	if c.Duplicates.HighConfidenceThreshold == 0 {
		c.Duplicates.HighConfidenceThreshold = 0.85
	}
	if c.Duplicates.MaxResults == 0 {
		c.Duplicates.MaxResults = 5
	}
	if c.Preview.TimeoutMinutes == 0 {
		c.Preview.TimeoutMinutes = 13
	}
	if c.Health.Port == 0 {
		c.Health.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks required configuration for the serving process.
// It returns every problem found so operators can fix them in one pass.
func (c *Config) Validate() []string {
	var errs []string
	if c.Discord.Token == "" {
		errs = append(errs, "DISCORD_BOT_TOKEN is required")
	}
	if c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" {
		errs = append(errs, "at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
	}
	if c.GitHub.Token == "" && c.GitHub.AppID == 0 {
		errs = append(errs, "either GITHUB_TOKEN or GITHUB_APP_ID is required")
	}
	if c.GitHub.AppID != 0 && c.GitHub.Token == "" {
		if c.GitHub.InstallationID == 0 {
			errs = append(errs, "GITHUB_INSTALLATION_ID is required for App authentication")
		}
		if c.GitHub.PrivateKeyPath == "" {
			errs = append(errs, "GITHUB_PRIVATE_KEY_PATH is required for App authentication")
		}
	}
	return errs
}

func setString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = strings.EqualFold(v, "true")
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
