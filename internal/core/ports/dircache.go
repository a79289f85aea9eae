package ports

import "time"

// DirCache answers existence and timestamp questions about the file system.
//
//go:generate mockgen -source=dircache.go -destination=mocks/mock_dircache.go -package=mocks
type DirCache interface {
	// FindFile returns the path of name in the working directory or the first
	// of dirs that contains it.
	FindFile(name string, dirs []string) (string, bool)
	// Entries returns the names held by dir.
	Entries(dir string) map[string]struct{}
	// Mtime returns the modification time of path.
	Mtime(path string) (time.Time, bool)
	// Invalidate forgets what is known about path and its directory.
	Invalidate(path string)
}
