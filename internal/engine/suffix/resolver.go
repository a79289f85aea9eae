// Package suffix finds implicit sources through the suffix transformation
// graph.
package suffix

import (
	"path"
	"slices"
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Resolver attaches implicit sources and transform commands to nodes.
type Resolver struct {
	g        *domain.Graph
	suffixes *domain.SuffixTable
	dirs     ports.DirCache
	expander ports.Expander
	globals  domain.Scope
}

// NewResolver creates a Resolver over one session's registries. globals is
// consulted when transform sources are expanded.
func NewResolver(
	g *domain.Graph,
	suffixes *domain.SuffixTable,
	dirs ports.DirCache,
	expander ports.Expander,
	globals domain.Scope,
) *Resolver {
	return &Resolver{
		g:        g,
		suffixes: suffixes,
		dirs:     dirs,
		expander: expander,
		globals:  globals,
	}
}

// candidate is one step of the search tree. Candidates live in a per-call
// arena and refer to their parent by index.
type candidate struct {
	file   string
	prefix string
	suffix int
	parent int
	path   string
}

type arena []candidate

func (a *arena) add(c candidate) int {
	*a = append(*a, c)
	return len(*a) - 1
}

// onChain reports whether suffix s already occurs between i and the root.
func (a arena) onChain(i, s int) bool {
	for ; i >= 0; i = a[i].parent {
		if a[i].suffix == s {
			return true
		}
	}
	return false
}

// Resolve searches implicit sources for h. Only the first call does work.
func (r *Resolver) Resolve(h domain.Handle) error {
	n := r.g.Node(h)
	if n.Resolved {
		return nil
	}
	n.Resolved = true
	if _, ok := n.Var(domain.VarTarget); !ok {
		n.SetVar(domain.VarTarget, n.Name.String())
	}

	switch {
	case n.Kind == domain.KindArchiveMember:
		return r.resolveMember(n)
	case n.Mods.Library:
		r.resolveLibrary(n)
		return nil
	case n.Kind == domain.KindPhony, n.Kind == domain.KindUse, n.Kind == domain.KindTransform:
		n.Prefix = n.Name.String()
		n.SetVar(domain.VarPrefix, n.Prefix)
		return nil
	}
	return r.resolveNormal(n)
}

func (r *Resolver) resolveNormal(n *domain.Node) error {
	name := n.Name.String()
	var a arena
	var targets []int
	for _, s := range r.suffixes.Matching(name) {
		targets = append(targets, a.add(candidate{
			file:   name,
			prefix: strings.TrimSuffix(name, r.suffixes.Get(s).Name),
			suffix: s,
			parent: -1,
		}))
	}
	if len(targets) == 0 {
		targets = append(targets, a.add(candidate{
			file:   name,
			prefix: name,
			suffix: r.suffixes.Null(),
			parent: -1,
		}))
	}

	top := a[targets[0]]
	n.Suffix = top.suffix
	n.Prefix = top.prefix
	n.SetVar(domain.VarPrefix, top.prefix)

	if len(n.Commands) > 0 {
		return nil
	}

	if i, ok := r.explicitSource(n, &a, targets); ok {
		return r.apply(n, a, i)
	}

	frontier := r.expand(&a, targets)
	for len(frontier) > 0 {
		for _, i := range frontier {
			if r.exists(&a[i]) {
				return r.apply(n, a, i)
			}
		}
		frontier = r.expand(&a, frontier)
	}
	return nil
}

// explicitSource looks for a declared child that a single transform turns
// into one of the target candidates. Children match on their base name, so
// src/foo.c serves foo.o.
func (r *Resolver) explicitSource(n *domain.Node, a *arena, targets []int) (int, bool) {
	if len(n.Children) == 0 {
		return 0, false
	}
	for _, t := range targets {
		tc := (*a)[t]
		stem := path.Base(tc.prefix)
		for _, cs := range r.suffixes.Get(tc.suffix).Children {
			name := r.suffixes.Get(cs).Name
			for _, ch := range n.Children {
				file := r.g.Node(ch).Name.String()
				if path.Base(file) != stem+name {
					continue
				}
				return a.add(candidate{
					file:   file,
					prefix: tc.prefix,
					suffix: cs,
					parent: t,
				}), true
			}
		}
	}
	return 0, false
}

// expand creates the next search round: one child per source suffix of each
// candidate, skipping suffixes already on the candidate's chain.
func (r *Resolver) expand(a *arena, frontier []int) []int {
	var next []int
	for _, i := range frontier {
		c := (*a)[i]
		for _, cs := range r.suffixes.Get(c.suffix).Children {
			if a.onChain(i, cs) {
				continue
			}
			next = append(next, a.add(candidate{
				file:   c.prefix + r.suffixes.Get(cs).Name,
				prefix: c.prefix,
				suffix: cs,
				parent: i,
			}))
		}
	}
	return next
}

func (r *Resolver) exists(c *candidate) bool {
	if _, ok := r.g.Find(c.file); ok {
		return true
	}
	path, ok := r.dirs.FindFile(c.file, r.suffixes.SearchPath(c.suffix))
	if ok {
		c.path = path
	}
	return ok
}

// apply links the chain from candidate i up to the target, bottom first.
func (r *Resolver) apply(n *domain.Node, a arena, i int) error {
	child := r.g.FindOrCreate(a[i].file)
	if child.Path == "" && a[i].path != "" {
		child.Path = a[i].path
	}

	for ; a[i].parent >= 0; i = a[i].parent {
		pc := a[a[i].parent]
		parent := n
		if pc.parent >= 0 {
			parent = r.g.FindOrCreate(pc.file)
			parent.Resolved = true
			parent.SetVar(domain.VarTarget, pc.file)
		}
		rule, ok := r.suffixes.Transform(a[i].suffix, pc.suffix)
		if !ok {
			r.g.Link(parent.ID, child.ID)
		} else if err := r.applyTransform(parent, child, rule, pc); err != nil {
			return err
		}
		child = parent
	}
	return nil
}

func (r *Resolver) applyTransform(parent, child *domain.Node, rule domain.Handle, pc candidate) error {
	r.g.Link(parent.ID, child.ID)
	if !slices.Contains(child.ImpliedParents, parent.ID) {
		child.ImpliedParents = append(child.ImpliedParents, parent.ID)
	}

	parent.Suffix = pc.suffix
	parent.Prefix = pc.prefix
	parent.SetVar(domain.VarPrefix, pc.prefix)
	parent.SetVar(domain.VarImpSrc, child.File())

	t := r.g.Node(rule)
	if len(parent.Commands) == 0 {
		parent.Commands = slices.Clone(t.Commands)
	}
	return r.ExpandChildren(parent, t.Sources)
}

// ExpandChildren expands raw child specs in the scope of parent and links the
// results: variables first, then wildcards on the global search path, then
// archive member lists.
func (r *Resolver) ExpandChildren(parent *domain.Node, raws []string) error {
	scope := domain.Chain{domain.NodeScope{N: parent}, r.globals}
	for _, raw := range raws {
		expanded, err := r.expander.Expand(raw, scope)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to expand source"), "source", raw)
		}
		for _, field := range domain.SplitWords(expanded) {
			for _, name := range r.childNames(field) {
				child := r.g.FindOrCreate(name)
				MarkName(child)
				r.g.Link(parent.ID, child.ID)
			}
		}
	}
	return nil
}

func (r *Resolver) childNames(field string) []string {
	if r.expander.HasWildcard(field) {
		matches, err := r.expander.Glob(field, r.suffixes.GlobalPath())
		if err == nil && len(matches) > 0 {
			return matches
		}
	}
	return domain.ExpandMembers(field)
}

// MarkName derives kind and modifiers that follow from a node's name alone.
func MarkName(n *domain.Node) {
	name := n.Name.String()
	if _, _, ok := domain.ParseMember(name); ok && n.Kind == domain.KindNormal {
		n.Kind = domain.KindArchiveMember
	}
	if _, ok := domain.LibraryName(name); ok {
		n.Mods.Library = true
	}
}

func (r *Resolver) resolveMember(n *domain.Node) error {
	archive, member, _ := domain.ParseMember(n.Name.String())
	mem := r.g.FindOrCreate(member)
	if err := r.Resolve(mem.ID); err != nil {
		return err
	}
	r.g.Link(n.ID, mem.ID)

	n.Path = archive
	n.SetVar(domain.VarTarget, member)
	n.SetVar(domain.VarArchive, archive)
	n.SetVar(domain.VarMember, member)
	n.SetVar(domain.VarImpSrc, mem.File())
	n.Prefix = mem.Prefix
	n.SetVar(domain.VarPrefix, mem.Prefix)

	memSuffix := mem.Suffix
	if memSuffix == domain.NoSuffix {
		if m := r.suffixes.Matching(member); len(m) > 0 {
			memSuffix = m[0]
		}
	}
	for _, as := range r.suffixes.Matching(archive) {
		n.Suffix = as
		rule, ok := r.suffixes.Transform(memSuffix, as)
		if !ok {
			continue
		}
		if len(n.Commands) == 0 {
			n.Commands = slices.Clone(r.g.Node(rule).Commands)
		}
		return r.ExpandChildren(n, r.g.Node(rule).Sources)
	}
	return nil
}

func (r *Resolver) resolveLibrary(n *domain.Node) {
	lib, _ := domain.LibraryName(n.Name.String())
	s, ok := r.suffixes.LibrarySuffix()
	if !ok {
		return
	}
	file := lib + r.suffixes.Get(s).Name
	n.Suffix = s
	n.Prefix = lib
	n.SetVar(domain.VarPrefix, lib)
	n.SetVar(domain.VarTarget, file)
	if path, found := r.dirs.FindFile(file, r.suffixes.SearchPath(s)); found {
		n.Path = path
	} else {
		n.Path = file
	}
}
