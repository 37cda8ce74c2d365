package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LIBRARY_API_BASE", "http://localhost:8080/api")
	t.Setenv("LIBRARY_STATE_PATH", "/tmp/lib/state.db")
	t.Setenv("LIBRARY_REVALIDATE_EXPIRY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/lib/state.db", cfg.Storage.Path)
	assert.True(t, cfg.Session.RevalidateExpiry)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Path)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
api:
  base_url: http://file.example/api
log:
  level: debug
`), 0o600))
	t.Setenv("LIBRARY_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "http://file.example/api", cfg.API.BaseURL)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.False(t, cfg.Session.RevalidateExpiry)
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIBRARY_API_BASE=http://dotenv.example\n"), 0o600))
	// godotenv never overrides variables that are already set; make sure it is unset
	// and restored afterwards.
	t.Setenv("LIBRARY_API_BASE", "")
	require.NoError(t, os.Unsetenv("LIBRARY_API_BASE"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example", cfg.API.BaseURL)
}

func TestMissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingBaseURL)
}
