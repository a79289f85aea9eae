package wiring_test

import (
	"context"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/app"
	_ "go.trai.ch/mk/internal/wiring"
)

// TestGraftDependencies resolves the whole graph the binary starts from.
// graft.AssertDepsValid cannot be used: it infers dependency ids from the
// package of the type passed to Dep, and every adapter shares ports.
func TestGraftDependencies(t *testing.T) {
	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)
	require.NotNil(t, components.App)
	require.NotNil(t, components.Logger)
	require.NoError(t, components.App.Close())
}
