package shell_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/adapters/shell"
)

func TestResolveEnvironment(t *testing.T) {
	got := shell.ResolveEnvironment(
		[]string{"PATH=/usr/bin", "HOME=/root", "broken"},
		[]string{"CC=clang", "PATH=/opt/bin"},
	)

	assert.Equal(t, []string{"PATH=/opt/bin", "HOME=/root", "CC=clang"}, got)
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain"), []byte(""), 0o644))

	got, err := shell.LookPath("tool", []string{"PATH=/nonexistent:" + dir})
	require.NoError(t, err)
	assert.Equal(t, exe, got)

	_, err = shell.LookPath("plain", []string{"PATH=" + dir})
	assert.Error(t, err)

	_, err = shell.LookPath("tool", nil)
	assert.Error(t, err)
}
