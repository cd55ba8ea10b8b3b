package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.TurnTimeout())
	assert.Equal(t, 5, cfg.Chat.MaxSteps)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "o3-mini", cfg.ModelID(ModelReasoning))
	assert.Equal(t, cfg.LLM.Models[ModelSmall], cfg.ModelID("unknown-alias"))
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[llm.models]
block-model = "file-block"

[chat]
max_duration_seconds = 30
max_steps = 3
event_buffer_size = 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOTENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("CHAT_MAX_STEPS", "4")
	t.Setenv("CHAT_ASYNC_PERSIST", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "file-block", cfg.ModelID(ModelBlock))
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout())
	assert.Equal(t, 4, cfg.Chat.MaxSteps)
	assert.True(t, cfg.Chat.AsyncPersist)
}

func TestLoadRejectsInvalidChatLimits(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CHAT_MAX_DURATION_SECONDS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAllowOriginsFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowOrigins)
}
