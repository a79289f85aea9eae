package dircache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/core/ports"
)

// NodeID is the graft id of the directory cache.
const NodeID graft.ID = "adapter.dircache"

func init() {
	graft.Register(graft.Node[ports.DirCache]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.DirCache, error) {
			return New(DefaultSize)
		},
	})
}
