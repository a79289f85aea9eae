package ports

import "go.trai.ch/mk/internal/core/domain"

// DeclarationSource supplies the targets, rules, suffixes and transforms of a
// session.
//
//go:generate mockgen -source=declarations.go -destination=mocks/mock_declarations.go -package=mocks
type DeclarationSource interface {
	// Load reads the declarations. An empty path searches upward from cwd.
	Load(cwd, path string) (*domain.Declarations, error)
}
