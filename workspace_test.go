package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horizon-boot/logging"
)

// quietLogger returns a logger with both channels disabled.
func quietLogger() *logging.Logger {
	return logging.New(logging.Config{})
}

func TestValidateWorkspaceMissing(t *testing.T) {
	cfg := &Config{Workspace: filepath.Join(t.TempDir(), "nope")}

	err := validateWorkspace(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateWorkspaceNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	cfg := &Config{Workspace: file}

	err := validateWorkspace(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestValidateWorkspaceCreatesConfigSubdir(t *testing.T) {
	ws := t.TempDir()
	cfg := &Config{Workspace: ws}

	require.NoError(t, validateWorkspace(cfg, quietLogger()))

	info, err := os.Stat(filepath.Join(ws, configSubdir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestValidateWorkspaceKeepsExistingConfigSubdir(t *testing.T) {
	ws := t.TempDir()
	marker := filepath.Join(ws, configSubdir, "keep")
	require.NoError(t, os.MkdirAll(filepath.Join(ws, configSubdir), 0755))
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))
	cfg := &Config{Workspace: ws}

	require.NoError(t, validateWorkspace(cfg, quietLogger()))

	// Existing content is never rewritten
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestValidateWorkspaceUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}
	ws := t.TempDir()
	require.NoError(t, os.Chmod(ws, 0555))
	t.Cleanup(func() { os.Chmod(ws, 0755) })
	cfg := &Config{Workspace: ws}

	err := validateWorkspace(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not writable")
}
