package ports

import "context"

// Watcher reports batches of changed paths below a directory tree.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Watch starts watching root recursively. Each value received from the
	// returned channel is one debounced batch of changed paths. The channel
	// is closed when ctx is done or the watcher fails.
	Watch(ctx context.Context, root string) (<-chan []string, error)
	// Close releases the watcher.
	Close() error
}
