package settings

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the graft id of the settings loader.
const NodeID graft.ID = "adapter.settings"

func init() {
	graft.Register(graft.Node[*Loader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Loader, error) {
			return NewLoader(), nil
		},
	})
}
