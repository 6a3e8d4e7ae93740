package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.toml")
	content := "[server]\nhost = \"127.0.0.1\"\nport = 9999\nname = \"Lumen/1.0\"\nthreads = 4\nqueue_size = 10\nread_timeout_secs = 10\nwrite_timeout_secs = 15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, uint16(9999), cfg.Server.Port)
	require.Equal(t, 4, cfg.Server.Threads)
	// Unspecified sections keep the default values.
	require.Equal(t, Default().Paths, cfg.Paths)
}

func TestLoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: toml: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
