package expand

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/core/ports"
)

// NodeID is the graft id of the expander.
const NodeID graft.ID = "adapter.expander"

func init() {
	graft.Register(graft.Node[ports.Expander]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Expander, error) {
			return New(), nil
		},
	})
}
