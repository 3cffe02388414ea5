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
	for _, k := range []string{
		"CONFIG_FILE", "LLM_PROVIDER", "LLM_MODEL", "GEMINI_API_KEY", "OPENAI_API_KEY",
		"ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "OPENAI_BASE_URL", "WORK_DIR",
		"API_PORT", "AMQP_URL", "HISTORY_DB", "DEFAULT_FILENAME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "g-key", cfg.APIKey)
	assert.Equal(t, "workspace", cfg.WorkDir)
	assert.Equal(t, "8000", cfg.APIPort)
	assert.Equal(t, "output.js", cfg.DefaultFilename)
	assert.Empty(t, cfg.AMQPURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "jsforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: anthropic
model: claude-test
work_dir: /tmp/from-file
api_port: "9000"
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-test", cfg.Model)
	assert.Equal(t, "/tmp/from-file", cfg.WorkDir)
	assert.Equal(t, "9100", cfg.APIPort)
	assert.Equal(t, "a-key", cfg.APIKey)
}

func TestValidate(t *testing.T) {
	err := Config{Provider: ProviderGemini}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	err = Config{Provider: "bard", APIKey: "x"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bard")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}
