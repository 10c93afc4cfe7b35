package appdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/appdir"
)

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "xdg"))
	cfg, err := appdir.ConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg), cfg)
	assert.Equal(t, appdir.Name, filepath.Base(cfg))

	artifacts := appdir.ArtifactDir()
	assert.Equal(t, appdir.Name, filepath.Base(artifacts))
	assert.Equal(t, filepath.Clean(os.TempDir()), filepath.Dir(artifacts))
}

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "config.yaml")
	require.NoError(t, appdir.EnsureFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Zero(t, info.Size())

	// An existing file keeps its content.
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 9\n"), 0o600))
	require.NoError(t, appdir.EnsureFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chunk_size: 9\n", string(data))
}
