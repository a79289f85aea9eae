package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/adapters/archive"   //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/dircache"  //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/expand"    //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/settings"  //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/mk/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			settings.NodeID,
			config.NodeID,
			dircache.NodeID,
			archive.NodeID,
			expand.NodeID,
			shell.NodeID,
			shell.RaiserNodeID,
			watcher.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}

//nolint:cyclop // one lookup per collaborator
func runAppNode(ctx context.Context) (*App, error) {
	var deps Deps
	var err error

	if deps.Settings, err = graft.Dep[*settings.Loader](ctx); err != nil {
		return nil, err
	}
	if deps.Decls, err = graft.Dep[ports.DeclarationSource](ctx); err != nil {
		return nil, err
	}
	if deps.Dirs, err = graft.Dep[ports.DirCache](ctx); err != nil {
		return nil, err
	}
	if deps.Archives, err = graft.Dep[ports.ArchiveReader](ctx); err != nil {
		return nil, err
	}
	if deps.Expander, err = graft.Dep[ports.Expander](ctx); err != nil {
		return nil, err
	}
	if deps.Executor, err = graft.Dep[ports.Executor](ctx); err != nil {
		return nil, err
	}
	if deps.Raiser, err = graft.Dep[ports.Raiser](ctx); err != nil {
		return nil, err
	}
	if deps.Watcher, err = graft.Dep[ports.Watcher](ctx); err != nil {
		return nil, err
	}
	if deps.Logger, err = graft.Dep[ports.Logger](ctx); err != nil {
		return nil, err
	}
	if deps.Tracer, err = graft.Dep[ports.Tracer](ctx); err != nil {
		return nil, err
	}
	return New(deps), nil
}
