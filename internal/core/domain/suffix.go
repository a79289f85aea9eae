package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// NoSuffix marks a node without an assigned suffix.
const NoSuffix = -1

// Property is a tag attached to a suffix.
type Property uint8

const (
	// PropInclude marks suffixes of includable headers (.INCLUDES).
	PropInclude Property = iota + 1
	// PropLibrary marks suffixes of libraries (.LIBS).
	PropLibrary
)

// Suffix is a filename extension known to the transformation graph.
type Suffix struct {
	Name string
	// Order is the declaration order used for tie-breaking.
	Order   int
	Null    bool
	Include bool
	Library bool
	Active  bool
	// Dirs is the suffix-specific search path.
	Dirs []string
	// Parents are the suffixes this one can be transformed into.
	Parents []int
	// Children are the suffixes this one can be made from, by Order.
	Children []int
}

type transformKey struct {
	src, dst int
}

// SuffixTable holds the suffixes of one session and the transformation graph
// between them.
type SuffixTable struct {
	suffixes []*Suffix
	byName   map[string]int
	next     int
	null     int
	maxLen   int
	global   []string

	transforms []Handle
	edges      map[transformKey]Handle
}

// emptySuffix is the built-in suffix of names without an extension. It is
// never active and never matched literally.
const emptySuffix = 0

// NewSuffixTable creates a table holding only the built-in empty suffix.
func NewSuffixTable() *SuffixTable {
	t := &SuffixTable{
		byName: make(map[string]int),
		null:   NoSuffix,
		edges:  make(map[transformKey]Handle),
	}
	t.suffixes = append(t.suffixes, &Suffix{Name: ""})
	t.byName[""] = emptySuffix
	return t
}

// Declare activates name. The first activation assigns the next declaration
// order; declaring an active suffix again changes nothing.
func (t *SuffixTable) Declare(name string) {
	if name == "" {
		return
	}
	if _, ok := t.byName[name]; ok {
		return
	}
	t.byName[name] = len(t.suffixes)
	t.suffixes = append(t.suffixes, &Suffix{
		Name:   name,
		Order:  t.next,
		Active: true,
	})
	t.next++
	t.maxLen = max(t.maxLen, len(name))
}

// MarkProperty tags an active suffix.
func (t *SuffixTable) MarkProperty(name string, prop Property) error {
	i, ok := t.Active(name)
	if !ok {
		return zerr.With(ErrUnknownSuffix, "suffix", name)
	}
	switch prop {
	case PropInclude:
		t.suffixes[i].Include = true
	case PropLibrary:
		t.suffixes[i].Library = true
	}
	return nil
}

// SetNull moves the null flag to name.
func (t *SuffixTable) SetNull(name string) error {
	i, ok := t.Active(name)
	if !ok {
		return zerr.With(ErrUnknownSuffix, "suffix", name)
	}
	if t.null != NoSuffix {
		t.suffixes[t.null].Null = false
	}
	t.suffixes[i].Null = true
	t.null = i
	return nil
}

// SetSearchPath sets the directories searched for files with suffix name.
func (t *SuffixTable) SetSearchPath(name string, dirs []string) error {
	i, ok := t.Active(name)
	if !ok {
		return zerr.With(ErrUnknownSuffix, "suffix", name)
	}
	t.suffixes[i].Dirs = slices.Clone(dirs)
	return nil
}

// SetGlobalPath sets the directories searched for every suffix.
func (t *SuffixTable) SetGlobalPath(dirs []string) {
	t.global = slices.Clone(dirs)
}

// GlobalPath returns the directories searched for every suffix.
func (t *SuffixTable) GlobalPath() []string {
	return t.global
}

// SearchPath returns the directories searched for files with suffix i: its own
// directories followed by the global path.
func (t *SuffixTable) SearchPath(i int) []string {
	if i == NoSuffix {
		return t.global
	}
	dirs := t.suffixes[i].Dirs
	if len(dirs) == 0 {
		return t.global
	}
	return append(slices.Clone(dirs), t.global...)
}

// Get returns the suffix at index i.
func (t *SuffixTable) Get(i int) *Suffix {
	return t.suffixes[i]
}

// Active returns the index of name if it is an active suffix.
func (t *SuffixTable) Active(name string) (int, bool) {
	i, ok := t.byName[name]
	if !ok || !t.suffixes[i].Active {
		return NoSuffix, false
	}
	return i, true
}

// Null returns the suffix assumed for names without a known suffix: the
// designated null suffix or the built-in empty one.
func (t *SuffixTable) Null() int {
	if t.null != NoSuffix {
		return t.null
	}
	return emptySuffix
}

// Matching returns every active suffix that name ends with, leaving a
// non-empty prefix, in declaration order.
func (t *SuffixTable) Matching(name string) []int {
	var out []int
	for i := len(name) - 1; i > 0 && len(name)-i <= t.maxLen; i-- {
		if s, ok := t.Active(name[i:]); ok {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b int) int {
		return t.suffixes[a].Order - t.suffixes[b].Order
	})
	return out
}

// ParseTransform splits a rule name such as ".c.o" into its source and
// target suffixes. Of all the split points whose two halves are active
// suffixes, the one with the earliest-declared source wins. A lone active
// suffix is a transform into the null suffix.
func (t *SuffixTable) ParseTransform(rule string) (src, dst int, ok bool) {
	src, dst = NoSuffix, NoSuffix
	for i := len(rule) - 1; i > 0; i-- {
		d, ok := t.Active(rule[i:])
		if !ok {
			continue
		}
		s, ok := t.Active(rule[:i])
		if !ok {
			continue
		}
		if src == NoSuffix || t.suffixes[s].Order < t.suffixes[src].Order {
			src, dst = s, d
		}
	}
	if src != NoSuffix {
		return src, dst, true
	}
	if s, ok := t.Active(rule); ok {
		return s, t.Null(), true
	}
	return NoSuffix, NoSuffix, false
}

// IsTransformName reports whether name parses as a transformation rule.
func (t *SuffixTable) IsTransformName(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	_, _, ok := t.ParseTransform(name)
	return ok
}

// DefineTransform registers the rule named rule as a transform node. A rule
// that does not parse is rejected with ErrConfig.
func (t *SuffixTable) DefineTransform(g *Graph, rule string) (*Node, error) {
	if _, _, ok := t.ParseTransform(rule); !ok {
		return nil, zerr.With(ErrConfig, "transform", rule)
	}
	n := g.FindOrCreate(rule)
	if n.Kind != KindTransform {
		n.Kind = KindTransform
		t.transforms = append(t.transforms, n.ID)
	}
	return n, nil
}

// Finalize builds the suffix graph from every registered transform that has
// commands and still parses against the active suffixes.
func (t *SuffixTable) Finalize(g *Graph) {
	for _, h := range t.transforms {
		n := g.Node(h)
		if len(n.Commands) == 0 {
			continue
		}
		src, dst, ok := t.ParseTransform(n.Name.String())
		if !ok {
			continue
		}
		t.link(src, dst, h)
	}
}

// Transform returns the rule that turns src into dst.
func (t *SuffixTable) Transform(src, dst int) (Handle, bool) {
	h, ok := t.edges[transformKey{src, dst}]
	return h, ok
}

// Transforms returns every registered transform in declaration order.
func (t *SuffixTable) Transforms() []Handle {
	return t.transforms
}

// FlagPath renders the search paths of every suffix carrying prop as compiler
// flags, e.g. "-Iinc -Isrc" for PropInclude.
func (t *SuffixTable) FlagPath(prop Property) string {
	flag := "-I"
	if prop == PropLibrary {
		flag = "-L"
	}
	var parts []string
	for _, s := range t.suffixes {
		if !s.Active || (prop == PropInclude && !s.Include) || (prop == PropLibrary && !s.Library) {
			continue
		}
		for _, d := range s.Dirs {
			parts = append(parts, flag+d)
		}
	}
	return strings.Join(parts, " ")
}

// LibrarySuffix returns the earliest declared library suffix.
func (t *SuffixTable) LibrarySuffix() (int, bool) {
	best := NoSuffix
	for i, s := range t.suffixes {
		if s.Active && s.Library && (best == NoSuffix || s.Order < t.suffixes[best].Order) {
			best = i
		}
	}
	return best, best != NoSuffix
}

func (t *SuffixTable) link(src, dst int, rule Handle) {
	key := transformKey{src, dst}
	if _, ok := t.edges[key]; ok {
		t.edges[key] = rule
		return
	}
	t.edges[key] = rule

	s, d := t.suffixes[src], t.suffixes[dst]
	s.Parents = append(s.Parents, dst)

	pos, _ := slices.BinarySearchFunc(d.Children, s.Order, func(c, order int) int {
		return t.suffixes[c].Order - order
	})
	d.Children = slices.Insert(d.Children, pos, src)
}
