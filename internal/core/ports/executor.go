// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
	"os"

	"go.trai.ch/mk/internal/core/domain"
)

// Executor starts job processes.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Start launches spec. A failure to write the script or create the process
	// is fatal for the run.
	Start(ctx context.Context, spec *domain.ProcSpec) (Process, error)
}

// Process is a running job.
type Process interface {
	// Pid returns the process id.
	Pid() int
	// Output is the merged stdout and stderr of the process. It reaches EOF
	// once every writer closed it.
	Output() io.Reader
	// Poll reaps the process without blocking.
	Poll() (domain.ProcState, error)
	// Signal delivers sig to the process group.
	Signal(sig os.Signal) error
	// Close releases the output stream and the script.
	Close() error
}

// Raiser re-delivers a signal to the current process with the default
// disposition restored.
type Raiser interface {
	Raise(sig os.Signal)
}
