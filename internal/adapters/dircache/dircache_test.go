package dircache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/adapters/dircache"
)

func newCache(t *testing.T) *dircache.Cache {
	t.Helper()
	c, err := dircache.New(16)
	require.NoError(t, err)
	return c
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFindFile(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	touch(t, "local.c", time.Now())
	touch(t, filepath.Join("src", "far.c"), time.Now())
	touch(t, filepath.Join("lib", "far.c"), time.Now())
	c := newCache(t)

	tests := []struct {
		name string
		dirs []string
		want string
		ok   bool
	}{
		{name: "local.c", want: "local.c", ok: true},
		{name: "far.c", dirs: []string{"src", "lib"}, want: filepath.Join("src", "far.c"), ok: true},
		{name: "far.c", dirs: []string{"lib", "src"}, want: filepath.Join("lib", "far.c"), ok: true},
		{name: "far.c"},
		{name: "missing.c", dirs: []string{"src"}},
		{name: filepath.Join(root, "local.c"), dirs: []string{"src"}, want: filepath.Join(root, "local.c"), ok: true},
	}

	for _, tt := range tests {
		got, ok := c.FindFile(tt.name, tt.dirs)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.name)
		}
	}
}

func TestMtime_CachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	c := newCache(t)

	_, ok := c.Mtime(path)
	assert.False(t, ok)
	assert.Empty(t, c.Entries(dir))

	then := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	touch(t, path, then)

	_, ok = c.Mtime(path)
	assert.False(t, ok, "a miss stays cached")
	_, found := c.FindFile(path, nil)
	assert.False(t, found)

	c.Invalidate(path)

	got, ok := c.Mtime(path)
	require.True(t, ok)
	assert.True(t, then.Equal(got))
	assert.Contains(t, c.Entries(dir), "out")
	_, found = c.FindFile(path, nil)
	assert.True(t, found)
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	c := newCache(t)
	assert.Empty(t, c.Entries(dir))

	touch(t, filepath.Join(dir, "a"), time.Now())
	c.Purge()

	assert.Contains(t, c.Entries(dir), "a")
}
