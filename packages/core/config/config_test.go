package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, "auto", cfg.Output)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetKeepAuthOnRedirect())
	assert.False(t, cfg.GetNoColor())
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	content := `
default_environment = "prod"
timeout_seconds = 10
follow_redirects = false
no_color = true

[headers]
"X-Team" = "platform"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.DefaultEnvironment)
	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetNoColor())
	assert.Equal(t, "platform", cfg.Headers["X-Team"])
	// unset fields keep their defaults
	assert.Equal(t, 10, cfg.MaxRedirects)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"defaultEnvironment":"dev","historyLimit":50}`), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.DefaultEnvironment)
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestLoad_TOMLWinsOverJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte(`default_environment = "from-toml"`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"defaultEnvironment":"from-json"}`), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-toml", cfg.DefaultEnvironment)
}

func TestLoad_ParseErrorFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte(`timeout_seconds = "not a number`), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DefaultEnvironment = "staging"
	cfg.NoColor = BoolPtr(true)
	cfg.KeepAuthOnRedirect = BoolPtr(true)

	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "staging", loaded.DefaultEnvironment)
	assert.True(t, loaded.GetNoColor())
	assert.True(t, loaded.GetKeepAuthOnRedirect())
}
