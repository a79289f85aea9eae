// Package dircache caches directory listings and file times so that
// resolution does not stat the same path twice.
package dircache

import (
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds each of the caches.
const DefaultSize = 4096

type stat struct {
	mtime  time.Time
	exists bool
}

// Cache implements ports.DirCache over the local file system. Relative paths
// are taken relative to the process working directory.
type Cache struct {
	entries *lru.Cache[string, map[string]struct{}]
	mtimes  *lru.Cache[string, stat]
}

// New creates a Cache holding at most size directories and size paths.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, map[string]struct{}](size)
	if err != nil {
		return nil, err
	}
	mtimes, err := lru.New[string, stat](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, mtimes: mtimes}, nil
}

// FindFile looks for name in the working directory and then in each of dirs.
// Absolute names are only checked where they are.
func (c *Cache) FindFile(name string, dirs []string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, c.has(name)
	}
	if c.has(name) {
		return name, true
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		candidate := filepath.Join(dir, name)
		if c.has(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (c *Cache) has(path string) bool {
	dir, base := filepath.Split(filepath.Clean(path))
	_, ok := c.Entries(dir)[base]
	return ok
}

// Entries returns the names held by dir. An unreadable directory is empty.
func (c *Cache) Entries(dir string) map[string]struct{} {
	key := cleanDir(dir)
	if names, ok := c.entries.Get(key); ok {
		return names
	}
	names := make(map[string]struct{})
	list, err := os.ReadDir(key)
	if err == nil {
		for _, e := range list {
			names[e.Name()] = struct{}{}
		}
	}
	c.entries.Add(key, names)
	return names
}

// Mtime returns the modification time of path without following a cached
// miss back to the disk.
func (c *Cache) Mtime(path string) (time.Time, bool) {
	key := filepath.Clean(path)
	if st, ok := c.mtimes.Get(key); ok {
		return st.mtime, st.exists
	}
	var st stat
	if info, err := os.Stat(key); err == nil {
		st = stat{mtime: info.ModTime(), exists: true}
	}
	c.mtimes.Add(key, st)
	return st.mtime, st.exists
}

// Invalidate forgets path and the listing of its directory. Call it after a
// job may have changed path.
func (c *Cache) Invalidate(path string) {
	key := filepath.Clean(path)
	c.mtimes.Remove(key)
	c.entries.Remove(cleanDir(filepath.Dir(key)))
}

// Purge forgets everything.
func (c *Cache) Purge() {
	c.entries.Purge()
	c.mtimes.Purge()
}

func cleanDir(dir string) string {
	if dir == "" {
		return "."
	}
	return filepath.Clean(dir)
}
