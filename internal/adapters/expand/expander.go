// Package expand substitutes variable references and expands file name
// wildcards.
//
// References take the forms ${NAME}, $(NAME) and $c for a single character
// name; $$ is a literal dollar. Names may themselves contain references.
// Values are expanded again when substituted, so a variable can refer to
// another. Undefined variables expand to nothing.
package expand

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// maxDepth bounds nested substitution; self-referencing variables hit it.
const maxDepth = 32

// Expander implements ports.Expander.
type Expander struct{}

// New creates an Expander.
func New() *Expander {
	return &Expander{}
}

// Expand substitutes every reference in raw using scope.
func (e *Expander) Expand(raw string, scope domain.Scope) (string, error) {
	if !strings.Contains(raw, "$") {
		return raw, nil
	}
	return expand(raw, scope, 0)
}

func expand(raw string, scope domain.Scope, depth int) (string, error) {
	if depth > maxDepth {
		return "", zerr.With(zerr.New("variable expansion recursed too deeply"), "text", raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(raw) {
			b.WriteByte('$')
			break
		}
		next := raw[i+1]
		var name string
		switch next {
		case '$':
			b.WriteByte('$')
			i++
			continue
		case '{', '(':
			end := closing(raw, i+1)
			if end < 0 {
				return "", zerr.With(zerr.New("unterminated variable reference"), "text", raw)
			}
			inner, err := expand(raw[i+2:end], scope, depth+1)
			if err != nil {
				return "", err
			}
			name = inner
			i = end
		default:
			name = string(next)
			i++
		}

		value, ok := lookup(scope, name)
		if !ok {
			continue
		}
		if strings.Contains(value, "$") {
			var err error
			if value, err = expand(value, scope, depth+1); err != nil {
				return "", zerr.With(err, "variable", name)
			}
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

func lookup(scope domain.Scope, name string) (string, bool) {
	if scope == nil {
		return "", false
	}
	return scope.Lookup(name)
}

// closing returns the index of the delimiter matching the one at open,
// honouring nesting of either bracket kind.
func closing(s string, open int) int {
	var stack []byte
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			stack = append(stack, '}')
		case '(':
			stack = append(stack, ')')
		case '}', ')':
			if len(stack) == 0 || stack[len(stack)-1] != s[i] {
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// HasWildcard reports whether name contains glob metacharacters. Archive
// member lists are not wildcards.
func (e *Expander) HasWildcard(name string) bool {
	if _, _, ok := domain.ParseMember(name); ok {
		return false
	}
	return strings.ContainsAny(name, "*?[{")
}

// Glob returns the files matching pattern in the working directory followed
// by those found under each of dirs. Absolute patterns ignore dirs. Each
// directory's matches are sorted; duplicates are dropped.
func (e *Expander) Glob(pattern string, dirs []string) ([]string, error) {
	bases := []string{""}
	if !filepath.IsAbs(pattern) {
		bases = append(bases, dirs...)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, base := range bases {
		full := pattern
		if base != "" && base != "." {
			full = filepath.Join(base, pattern)
		}
		matches, err := doublestar.Glob(full)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrExpandFailed.Error()), "pattern", pattern)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}
