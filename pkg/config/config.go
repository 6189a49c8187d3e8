// Package config loads Proctor's run configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for the browser viewport; the decision oracle is told these
// dimensions and all screenshots are captured at them.
const (
	DefaultDisplayWidth  = 1024
	DefaultDisplayHeight = 768
)

// Config holds everything needed to run a supervised browser test.
type Config struct {
	// APIKey authenticates against the completion API.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the completion API endpoint.
	BaseURL string `yaml:"base_url"`

	// DecisionModel is the computer-use model that proposes UI actions.
	DecisionModel string `yaml:"decision_model"`
	// ReviewModel is the visual-assessment model refreshing the checklist.
	ReviewModel string `yaml:"review_model"`
	// AuthorModel turns a test description into checklist steps.
	AuthorModel string `yaml:"author_model"`

	DisplayWidth  int  `yaml:"display_width"`
	DisplayHeight int  `yaml:"display_height"`
	Headless      bool `yaml:"headless"`

	// EnvInstructions carries environment-specific guidance for the
	// decision oracle, e.g. macOS key-combination differences.
	EnvInstructions string `yaml:"env_instructions"`

	// EvidenceDir is the root under which per-run evidence buckets are
	// created.
	EvidenceDir string `yaml:"evidence_dir"`

	// ChainReviewResponses keeps the full review conversation context by
	// threading each response id into the next call. Process-wide toggle.
	ChainReviewResponses bool `yaml:"chain_review_responses"`

	// ListenAddr is the bind address of the notification server.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the configuration defaults before file and environment
// overrides.
func Default() Config {
	return Config{
		DecisionModel:        "computer-use-preview",
		ReviewModel:          "gpt-4o",
		AuthorModel:          "o3-mini",
		DisplayWidth:         DefaultDisplayWidth,
		DisplayHeight:        DefaultDisplayHeight,
		EvidenceDir:          "test_results",
		ChainReviewResponses: true,
		ListenAddr:           ":8000",
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.APIKey, "OPENAI_API_KEY")
	setString(&c.BaseURL, "OPENAI_BASE_URL")
	setString(&c.DecisionModel, "PROCTOR_DECISION_MODEL")
	setString(&c.ReviewModel, "PROCTOR_REVIEW_MODEL")
	setString(&c.AuthorModel, "PROCTOR_AUTHOR_MODEL")
	setString(&c.EnvInstructions, "ENV_SPECIFIC_INSTRUCTIONS")
	setString(&c.EvidenceDir, "PROCTOR_EVIDENCE_DIR")
	setString(&c.ListenAddr, "PROCTOR_LISTEN_ADDR")
	setInt(&c.DisplayWidth, "DISPLAY_WIDTH")
	setInt(&c.DisplayHeight, "DISPLAY_HEIGHT")
	setBool(&c.Headless, "PROCTOR_HEADLESS")
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required (set api_key or OPENAI_API_KEY)")
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("display dimensions must be positive, got %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	if c.DecisionModel == "" || c.ReviewModel == "" || c.AuthorModel == "" {
		return fmt.Errorf("all model names must be set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
