package ports

import "go.trai.ch/mk/internal/core/domain"

// Expander substitutes variable references and expands wildcards.
//
//go:generate mockgen -source=expander.go -destination=mocks/mock_expander.go -package=mocks
type Expander interface {
	// Expand substitutes every variable reference in raw using scope.
	Expand(raw string, scope domain.Scope) (string, error)
	// HasWildcard reports whether name contains glob metacharacters.
	HasWildcard(name string) bool
	// Glob returns the existing names matching pattern, searched relative to
	// the working directory first and then to each of dirs.
	Glob(pattern string, dirs []string) ([]string, error)
}
