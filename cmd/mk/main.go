// Package main is the entry point for the mk build tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/cmd/mk/commands"
	"go.trai.ch/mk/internal/app"
	"go.trai.ch/mk/internal/core/domain"
	_ "go.trai.ch/mk/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.App.Close() }, nil
	}))
}

// run executes the CLI and maps its outcome to an exit code. Interrupts are
// not turned into a cancelled context: the scheduler receives them itself so
// it can stop jobs and run .INTERRUPT first.
func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer cleanup()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		switch {
		case errors.Is(err, domain.ErrQueryOutOfDate):
			// Reported by the exit code alone.
		case errors.Is(err, domain.ErrBuildFailed):
			// Failures were printed as they happened.
			components.Logger.Debug(err.Error())
		default:
			components.Logger.Error(err)
		}
		return 1
	}
	return 0
}
