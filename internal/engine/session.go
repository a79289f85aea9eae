// Package engine assembles the registries of one build and drives the
// scheduler over them.
package engine

import (
	"context"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/engine/oodate"
	"go.trai.ch/mk/internal/engine/scheduler"
	"go.trai.ch/mk/internal/engine/suffix"
	"go.trai.ch/zerr"
)

// Variables published to every job next to the declared ones.
const (
	VarIncludes = ".INCLUDES"
	VarLibs     = ".LIBS"
	VarCurDir   = ".CURDIR"
)

// Deps are the collaborators shared by every session of a process.
type Deps struct {
	Dirs     ports.DirCache
	Archives ports.ArchiveReader
	Expander ports.Expander
	Executor ports.Executor
	Renderer ports.Renderer
	Logger   ports.Logger
	Tracer   ports.Tracer
	Raiser   ports.Raiser
	Inbox    *scheduler.Inbox
}

// Session owns the node and suffix registries for exactly one run. Create a
// new one for every build.
type Session struct {
	deps     Deps
	g        *domain.Graph
	suffixes *domain.SuffixTable
	globals  domain.MapScope
	resolver *suffix.Resolver
	eval     *oodate.Evaluator

	dir      string
	main     []domain.Handle
	declared []domain.Handle
}

// NewSession creates an empty session.
func NewSession(deps Deps) *Session {
	s := &Session{
		deps:     deps,
		g:        domain.NewGraph(),
		suffixes: domain.NewSuffixTable(),
		globals:  domain.MapScope{},
	}
	s.resolver = suffix.NewResolver(s.g, s.suffixes, deps.Dirs, deps.Expander, s.scope())
	s.eval = oodate.NewEvaluator(s.g, s.suffixes, deps.Dirs, deps.Archives)
	return s
}

// Graph returns the node registry.
func (s *Session) Graph() *domain.Graph {
	return s.g
}

// Suffixes returns the suffix registry.
func (s *Session) Suffixes() *domain.SuffixTable {
	return s.suffixes
}

// Declared returns the targets named by rules, in declaration order.
func (s *Session) Declared() []*domain.Node {
	out := make([]*domain.Node, 0, len(s.declared))
	for _, h := range s.declared {
		out = append(out, s.g.Node(h))
	}
	return out
}

func (s *Session) scope() domain.Scope {
	return domain.Chain{s.globals, domain.EnvScope{}}
}

// Apply registers decls. Malformed declarations are logged and dropped; the
// rest is applied.
func (s *Session) Apply(decls *domain.Declarations) {
	s.dir = decls.Dir
	maps.Copy(s.globals, decls.Vars)
	if s.dir != "" {
		s.globals[VarCurDir] = s.dir
	}

	s.applySuffixes(decls)
	for _, t := range decls.Transforms {
		s.defineTransform(t.Name, t.Sources, t.Commands)
	}
	for _, rule := range decls.Rules {
		s.applyRule(rule)
	}
	s.applySpecial(domain.TargetBegin, decls.Begin)
	s.applySpecial(domain.TargetEnd, decls.End)
	s.applySpecial(domain.TargetInterrupt, decls.Interrupt)
	for _, chain := range decls.Order {
		s.applyOrder(chain)
	}

	s.suffixes.Finalize(s.g)

	for _, name := range decls.Main {
		n := s.g.FindOrCreate(name)
		suffix.MarkName(n)
		s.main = append(s.main, n.ID)
	}
	if len(s.main) == 0 {
		if h, ok := s.defaultMain(); ok {
			s.main = append(s.main, h)
		}
	}
}

func (s *Session) applySuffixes(decls *domain.Declarations) {
	for _, name := range decls.Suffixes {
		s.suffixes.Declare(name)
	}
	if decls.Null != "" {
		s.warn(s.suffixes.SetNull(decls.Null))
	}
	for _, name := range decls.Includes {
		s.warn(s.suffixes.MarkProperty(name, domain.PropInclude))
	}
	for _, name := range decls.Libraries {
		s.warn(s.suffixes.MarkProperty(name, domain.PropLibrary))
	}
	s.suffixes.SetGlobalPath(decls.Path)
	for _, name := range slices.Sorted(maps.Keys(decls.Paths)) {
		s.warn(s.suffixes.SetSearchPath(name, decls.Paths[name]))
	}
	s.globals[VarIncludes] = s.suffixes.FlagPath(domain.PropInclude)
	s.globals[VarLibs] = s.suffixes.FlagPath(domain.PropLibrary)
}

func (s *Session) defineTransform(name string, sources, commands []string) {
	n, err := s.suffixes.DefineTransform(s.g, name)
	if err != nil {
		s.warn(err)
		return
	}
	n.Commands = append(n.Commands, commands...)
	n.Sources = append(n.Sources, sources...)
}

func (s *Session) applyRule(rule domain.Rule) {
	for _, raw := range rule.Targets {
		if s.suffixes.IsTransformName(raw) {
			s.defineTransform(raw, rule.Sources, rule.Commands)
			continue
		}
		for _, name := range domain.ExpandMembers(raw) {
			s.applyTarget(rule, name)
		}
	}
}

func (s *Session) applyTarget(rule domain.Rule, name string) {
	main := s.g.FindOrCreate(name)
	suffix.MarkName(main)
	if !slices.Contains(s.declared, main.ID) {
		s.declared = append(s.declared, main.ID)
	}
	for _, attr := range rule.Attrs {
		s.warn(domain.ApplyAttr(main, attr))
	}

	target := main
	switch rule.Op {
	case domain.OpForce:
		if main.Kind == domain.KindNormal {
			main.Kind = domain.KindForce
		}
	case domain.OpEach:
		main.Mods.Each = true
		target = s.g.AddCohort(main)
		s.g.Link(main.ID, target.ID)
	}

	if len(rule.Commands) > 0 {
		if len(target.Commands) > 0 {
			s.deps.Logger.Warn("duplicate commands for " + name + " ignored")
		} else {
			target.Commands = slices.Clone(rule.Commands)
		}
	}
	s.warn(s.resolver.ExpandChildren(target, rule.Sources))
}

func (s *Session) applySpecial(name string, commands []string) {
	if len(commands) == 0 {
		return
	}
	n := s.g.FindOrCreate(name)
	n.Mods.Special = true
	n.Commands = append(n.Commands, commands...)
}

// applyOrder makes every name in chain wait for the one before it.
func (s *Session) applyOrder(chain []string) {
	for i := 1; i < len(chain); i++ {
		pred := s.g.FindOrCreate(chain[i-1])
		succ := s.g.FindOrCreate(chain[i])
		s.g.Order(pred.ID, succ.ID)
	}
}

// defaultMain is the first declared target that is not special, not a
// helper and not marked notmain.
func (s *Session) defaultMain() (domain.Handle, bool) {
	for _, h := range s.declared {
		n := s.g.Node(h)
		switch {
		case strings.HasPrefix(n.Name.String(), "."):
		case n.Mods.NotMain, n.Kind == domain.KindUse, n.Kind == domain.KindTransform:
		default:
			return h, true
		}
	}
	return domain.NoNode, false
}

// Targets maps requested names to nodes. No names selects the main target.
func (s *Session) Targets(names []string) ([]domain.Handle, error) {
	if len(names) == 0 {
		if len(s.main) == 0 {
			return nil, domain.ErrNoTargets
		}
		return slices.Clone(s.main), nil
	}
	out := make([]domain.Handle, 0, len(names))
	for _, name := range names {
		if n, ok := s.g.Find(name); ok {
			out = append(out, n.ID)
			continue
		}
		if !s.known(name) {
			return nil, zerr.With(domain.ErrUnknownTarget, "target", name)
		}
		n := s.g.FindOrCreate(name)
		suffix.MarkName(n)
		out = append(out, n.ID)
	}
	return out, nil
}

// known reports whether an undeclared name can still be built or stands for
// an existing file.
func (s *Session) known(name string) bool {
	if _, ok := domain.LibraryName(name); ok {
		return true
	}
	if _, _, ok := domain.ParseMember(name); ok {
		return true
	}
	if _, ok := s.deps.Dirs.FindFile(name, s.suffixes.GlobalPath()); ok {
		return true
	}
	return len(s.suffixes.Matching(name)) > 0
}

// Run builds the named targets under opts.
func (s *Session) Run(ctx context.Context, names []string, opts domain.Options) error {
	targets, err := s.Targets(names)
	if err != nil {
		return err
	}
	sched := scheduler.NewScheduler(scheduler.Deps{
		Graph:     s.g,
		Resolver:  s.resolver,
		Evaluator: s.eval,
		Executor:  s.deps.Executor,
		Expander:  s.deps.Expander,
		Renderer:  s.deps.Renderer,
		Logger:    s.deps.Logger,
		Tracer:    s.deps.Tracer,
		Raiser:    s.deps.Raiser,
		Inbox:     s.deps.Inbox,
		Globals:   s.scope(),
		Dir:       s.dir,
	}, opts)
	return sched.Run(ctx, targets)
}

func (s *Session) warn(err error) {
	if err != nil {
		s.deps.Logger.Warn(err.Error())
	}
}
