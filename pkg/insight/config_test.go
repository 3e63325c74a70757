package insight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
session:
  token_secret: abc
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2000, cfg.Polling.IntervalMS)
	assert.Equal(t, 30, cfg.Polling.MaxAttempts)
	assert.Equal(t, "poll", cfg.Pipeline.Strategy)
	assert.True(t, cfg.Privacy.RedactPII)
	assert.False(t, cfg.Session.RequireAllAnswered)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SPEECH_KEY", "key-from-env")
	path := writeConfig(t, `
session:
  token_secret: abc
vendors:
  speech:
    provider: assemblyai
    settings:
      api_key: ${TEST_SPEECH_KEY}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Vendors.Speech.Settings["api_key"])
}

func TestLoadConfigRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9999"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_secret")
}

func TestLoadConfigRejectsBadStrategy(t *testing.T) {
	path := writeConfig(t, `
session:
  token_secret: abc
pipeline:
  strategy: sometimes
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy")
}

func TestLoadConfigRejectsBadStorageDriver(t *testing.T) {
	path := writeConfig(t, `
session:
  token_secret: abc
storage:
  driver: postgres
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}
