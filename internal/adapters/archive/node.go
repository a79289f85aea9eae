package archive

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/core/ports"
)

// NodeID is the graft id of the archive reader.
const NodeID graft.ID = "adapter.archive"

func init() {
	graft.Register(graft.Node[ports.ArchiveReader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ArchiveReader, error) {
			return NewReader(DefaultSize)
		},
	})
}
