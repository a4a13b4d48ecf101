package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "tenderscope.db", cfg.Store.Path)
	assert.Equal(t, 24, cfg.Cache.MaxAgeHours)
	assert.Equal(t, 5, cfg.Classifier.FallbackCount)
	assert.Equal(t, 4.0, cfg.Replay.Speed)
	assert.Equal(t, 250, cfg.Replay.DefaultGapMS)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverridesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
replay:
  speed: 2.5
classifier:
  fallback_count: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2.5, cfg.Replay.Speed)
	assert.Equal(t, 3, cfg.Classifier.FallbackCount)
	// Unset fields still get defaults.
	assert.Equal(t, "tenderscope.db", cfg.Store.Path)
	assert.Equal(t, 250, cfg.Replay.DefaultGapMS)
}

func TestLoad_EnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7777\"\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
