package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Repo)
	assert.Equal(t, "backlog", cfg.DefaultStatus)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := &Config{Repo: "owner/repo", DefaultStatus: "todo", LogLevel: "debug"}
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("repo: owner/repo\n"), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", cfg.Repo)
	assert.Equal(t, "backlog", cfg.DefaultStatus, "fields absent from the file keep their defaults")
}

func TestLoadInvalidYaml(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("repo: [unclosed"), 0644))

	_, err := Load(root)
	assert.Error(t, err)
}
