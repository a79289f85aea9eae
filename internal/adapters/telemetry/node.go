package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/core/ports"
)

// TracerNodeID is the graft id of the default tracer. Tracing is off until
// the run asks for it, so the node yields the no-op tracer.
const TracerNodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			return NewNoOpTracer(), nil
		},
	})
}
