package domain

import "os"

// Scope resolves variable names during expansion.
type Scope interface {
	Lookup(name string) (string, bool)
}

// MapScope is a Scope backed by a map.
type MapScope map[string]string

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvScope resolves names from the process environment.
type EnvScope struct{}

// Lookup implements Scope.
func (EnvScope) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Chain consults each scope in turn.
type Chain []Scope

// Lookup implements Scope.
func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// NodeScope exposes a node's local variables under both their long and
// single-character names.
type NodeScope struct {
	N *Node
}

var shortVars = map[string]string{
	"@": VarTarget,
	"*": VarPrefix,
	"<": VarImpSrc,
	">": VarAllSrc,
	"?": VarOODate,
	"!": VarArchive,
	"%": VarMember,
}

// Lookup implements Scope.
func (s NodeScope) Lookup(name string) (string, bool) {
	if long, ok := shortVars[name]; ok {
		name = long
	}
	return s.N.Var(name)
}
