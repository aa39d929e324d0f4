package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOSAI_API_URL", "")
	t.Setenv("SOSAI_VARIANT", "")
	t.Setenv("SOSAI_PLAYBACK_RATE", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "dialog", cfg.Variant)
	assert.Equal(t, 1.25, cfg.PlaybackRate)
	assert.Equal(t, 300*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 3, cfg.ImageTopK)
	assert.Equal(t, "ko", cfg.RecognizerLanguage())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SOSAI_API_URL", "https://api.sosai.example")
	t.Setenv("SOSAI_VARIANT", "answer")
	t.Setenv("SOSAI_TOP_K", "5")
	t.Setenv("SOSAI_SETTLE_DELAY", "50ms")
	t.Setenv("SOSAI_TOP_K_BAD", "x")
	t.Setenv("SOSAI_NOTIFY", "false")

	cfg := Load()
	assert.Equal(t, "https://api.sosai.example", cfg.APIURL)
	assert.Equal(t, "answer", cfg.Variant)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 50*time.Millisecond, cfg.SettleDelay)
	assert.False(t, cfg.Notify)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()
	cfg.Speech = "none"
	require.NoError(t, cfg.Validate())

	cfg.Variant = "legacy"
	assert.Error(t, cfg.Validate())

	cfg.Variant = "chat"
	assert.Error(t, cfg.Validate(), "chat needs an api key")

	cfg.Variant = "dialog"
	cfg.DialogAuth = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestValidate_DuckLevel(t *testing.T) {
	t.Setenv("SOSAI_DUCK_LEVEL", "1.5")
	cfg := Load()
	cfg.Speech = "none"
	assert.ErrorContains(t, cfg.Validate(), "duck level")

	cfg.DuckLevel = 1
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, LoadEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SOSAI_TEST_ENV_VAR=from-file\nSOSAI_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("SOSAI_TEST_ENV_VAR", "")
	os.Unsetenv("SOSAI_TEST_ENV_VAR")
	t.Setenv("SOSAI_TEST_PRESET", "from-env")

	assert.True(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SOSAI_TEST_ENV_VAR"))
	assert.Equal(t, "from-env", os.Getenv("SOSAI_TEST_PRESET"))
}
