package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL",
		"PROCTOR_DECISION_MODEL", "PROCTOR_REVIEW_MODEL", "PROCTOR_AUTHOR_MODEL",
		"ENV_SPECIFIC_INSTRUCTIONS", "PROCTOR_EVIDENCE_DIR", "PROCTOR_LISTEN_ADDR",
		"DISPLAY_WIDTH", "DISPLAY_HEIGHT", "PROCTOR_HEADLESS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "computer-use-preview", cfg.DecisionModel)
	assert.Equal(t, "gpt-4o", cfg.ReviewModel)
	assert.Equal(t, DefaultDisplayWidth, cfg.DisplayWidth)
	assert.Equal(t, DefaultDisplayHeight, cfg.DisplayHeight)
	assert.True(t, cfg.ChainReviewResponses)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "proctor.yaml")
	data := []byte("api_key: from-file\ndisplay_width: 800\nreview_model: gpt-4o-mini\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	// Environment overrides the file.
	t.Setenv("DISPLAY_WIDTH", "1280")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, 1280, cfg.DisplayWidth)
	assert.Equal(t, "gpt-4o-mini", cfg.ReviewModel)
	// File left height alone, default applies.
	assert.Equal(t, DefaultDisplayHeight, cfg.DisplayHeight)
}

func TestLoadRejectsBadDimensions(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DISPLAY_WIDTH", "-5")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display dimensions")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
