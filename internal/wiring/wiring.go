// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/mk/internal/adapters/archive"
	_ "go.trai.ch/mk/internal/adapters/config"
	_ "go.trai.ch/mk/internal/adapters/dircache"
	_ "go.trai.ch/mk/internal/adapters/expand"
	_ "go.trai.ch/mk/internal/adapters/logger"
	_ "go.trai.ch/mk/internal/adapters/settings"
	_ "go.trai.ch/mk/internal/adapters/shell"
	_ "go.trai.ch/mk/internal/adapters/telemetry"
	_ "go.trai.ch/mk/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/mk/internal/app"
)
