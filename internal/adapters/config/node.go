package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/adapters/logger"
	"go.trai.ch/mk/internal/core/ports"
)

// NodeID is the graft id of the declaration loader.
const NodeID graft.ID = "adapter.declarations"

func init() {
	graft.Register(graft.Node[ports.DeclarationSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.DeclarationSource, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})
}
