package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/core/ports"
)

const (
	// NodeID is the graft id of the executor.
	NodeID graft.ID = "adapter.executor"
	// RaiserNodeID is the graft id of the signal raiser.
	RaiserNodeID graft.ID = "adapter.raiser"
)

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Executor, error) {
			return NewExecutor(), nil
		},
	})

	graft.Register(graft.Node[ports.Raiser]{
		ID:        RaiserNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Raiser, error) {
			return Raiser{}, nil
		},
	})
}
