package suffix_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports/mocks"
	"go.trai.ch/mk/internal/engine/suffix"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	g     *domain.Graph
	st    *domain.SuffixTable
	files map[string]string
	globs map[string][]string
	looks int
}

func newFixture(suffixes ...string) *fixture {
	f := &fixture{
		g:     domain.NewGraph(),
		st:    domain.NewSuffixTable(),
		files: make(map[string]string),
		globs: make(map[string][]string),
	}
	for _, s := range suffixes {
		f.st.Declare(s)
	}
	return f
}

func (f *fixture) transform(t *testing.T, rule string, sources ...string) {
	t.Helper()
	n, err := f.st.DefineTransform(f.g, rule)
	require.NoError(t, err)
	n.Commands = []string{"build " + rule}
	n.Sources = sources
}

func (f *fixture) file(names ...string) {
	for _, n := range names {
		f.files[n] = n
	}
}

func (f *fixture) resolver(t *testing.T) *suffix.Resolver {
	t.Helper()
	f.st.Finalize(f.g)

	ctrl := gomock.NewController(t)
	dirs := mocks.NewMockDirCache(ctrl)
	dirs.EXPECT().FindFile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(name string, _ []string) (string, bool) {
			f.looks++
			p, ok := f.files[name]
			return p, ok
		}).AnyTimes()

	exp := mocks.NewMockExpander(ctrl)
	exp.EXPECT().Expand(gomock.Any(), gomock.Any()).DoAndReturn(
		func(raw string, scope domain.Scope) (string, error) {
			return strings.ReplaceAll(raw, "$*", lookup(scope, "*")), nil
		}).AnyTimes()
	exp.EXPECT().HasWildcard(gomock.Any()).DoAndReturn(
		func(name string) bool { return strings.ContainsAny(name, "*?[") }).AnyTimes()
	exp.EXPECT().Glob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(pattern string, _ []string) ([]string, error) { return f.globs[pattern], nil }).AnyTimes()

	return suffix.NewResolver(f.g, f.st, dirs, exp, domain.MapScope{})
}

func lookup(s domain.Scope, name string) string {
	v, _ := s.Lookup(name)
	return v
}

func childNames(g *domain.Graph, n *domain.Node) []string {
	return g.Names(n.Children)
}

func TestResolve_DeclarationOrderBreaksTies(t *testing.T) {
	f := newFixture(".o", ".c", ".y")
	f.transform(t, ".y.o")
	f.transform(t, ".c.o")
	f.file("foo.c", "foo.y")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"foo.c"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .c.o"}, n.Commands)
	impsrc, _ := n.Var(domain.VarImpSrc)
	assert.Equal(t, "foo.c", impsrc)
	prefix, _ := n.Var(domain.VarPrefix)
	assert.Equal(t, "foo", prefix)
}

func TestResolve_ShortestChainWins(t *testing.T) {
	f := newFixture(".o", ".s", ".c")
	f.transform(t, ".c.s")
	f.transform(t, ".s.o")
	f.transform(t, ".c.o")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"foo.c"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .c.o"}, n.Commands)
	_, ok := f.g.Find("foo.s")
	assert.False(t, ok, "no intermediate is created for a direct transform")
}

func TestResolve_IntermediateChain(t *testing.T) {
	f := newFixture(".o", ".s", ".c")
	f.transform(t, ".c.s")
	f.transform(t, ".s.o")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))

	require.Equal(t, []string{"foo.s"}, childNames(f.g, n))
	s, ok := f.g.Find("foo.s")
	require.True(t, ok)
	assert.True(t, s.Resolved)
	assert.Equal(t, []string{"foo.c"}, childNames(f.g, s))
	assert.Equal(t, []string{"build .c.s"}, s.Commands)
	assert.Equal(t, []string{"build .s.o"}, n.Commands)
	assert.Equal(t, []domain.Handle{n.ID}, s.ImpliedParents)

	c, _ := f.g.Find("foo.c")
	assert.Equal(t, []domain.Handle{s.ID}, c.ImpliedParents)
}

func TestResolve_Idempotent(t *testing.T) {
	f := newFixture(".o", ".c")
	f.transform(t, ".c.o")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))
	looks := f.looks
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, looks, f.looks, "a resolved node is not searched again")
	assert.Len(t, n.Children, 1)
}

func TestResolve_ExplicitChildOverridesSearch(t *testing.T) {
	f := newFixture(".o", ".c", ".y")
	f.transform(t, ".c.o")
	f.transform(t, ".y.o")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	y := f.g.FindOrCreate("foo.y")
	f.g.Link(n.ID, y.ID)
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"foo.y"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .y.o"}, n.Commands)
}

func TestResolve_ExplicitChildInAnotherDirectory(t *testing.T) {
	f := newFixture(".o", ".c")
	f.transform(t, ".c.o")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	src := f.g.FindOrCreate("src/foo.c")
	f.g.Link(n.ID, src.ID)
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"src/foo.c"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .c.o"}, n.Commands)
	impsrc, _ := n.Var(domain.VarImpSrc)
	assert.Equal(t, "src/foo.c", impsrc)
}

func TestResolve_NodeWithCommandsKeepsThem(t *testing.T) {
	f := newFixture(".o", ".c")
	f.transform(t, ".c.o")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	n.Commands = []string{"custom"}
	require.NoError(t, r.Resolve(n.ID))

	o, _ := f.st.Active(".o")
	assert.Equal(t, o, n.Suffix)
	assert.Empty(t, n.Children)
	assert.Equal(t, []string{"custom"}, n.Commands)
}

func TestResolve_NullSuffix(t *testing.T) {
	f := newFixture(".c", ".out")
	require.NoError(t, f.st.SetNull(".out"))
	f.transform(t, ".c")
	f.file("prog.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("prog")
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, f.st.Null(), n.Suffix)
	assert.Equal(t, []string{"prog.c"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .c"}, n.Commands)
}

func TestResolve_EmptySuffixWithoutNull(t *testing.T) {
	f := newFixture(".c")
	f.transform(t, ".c")
	f.file("prog.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("prog")
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"prog.c"}, childNames(f.g, n))
}

func TestResolve_CyclicSuffixGraphTerminates(t *testing.T) {
	f := newFixture(".a", ".b")
	f.transform(t, ".a.b")
	f.transform(t, ".b.a")
	r := f.resolver(t)

	n := f.g.FindOrCreate("x.b")
	require.NoError(t, r.Resolve(n.ID))
	assert.Empty(t, n.Children)
}

func TestResolve_SearchPathSetsChildPath(t *testing.T) {
	f := newFixture(".o", ".c")
	f.transform(t, ".c.o")
	f.files["foo.c"] = "src/foo.c"
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))

	c, ok := f.g.Find("foo.c")
	require.True(t, ok)
	assert.Equal(t, "src/foo.c", c.Path)
	impsrc, _ := n.Var(domain.VarImpSrc)
	assert.Equal(t, "src/foo.c", impsrc)
}

func TestResolve_TransformSources(t *testing.T) {
	f := newFixture(".o", ".c")
	f.transform(t, ".c.o", "$*.h", "config.h")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("foo.o")
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, []string{"foo.c", "foo.h", "config.h"}, childNames(f.g, n))
}

func TestResolve_ArchiveMember(t *testing.T) {
	f := newFixture(".a", ".o", ".c")
	f.transform(t, ".c.o")
	f.transform(t, ".o.a")
	f.file("foo.c")
	r := f.resolver(t)

	n := f.g.FindOrCreate("lib.a(foo.o)")
	suffix.MarkName(n)
	require.Equal(t, domain.KindArchiveMember, n.Kind)
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, "lib.a", n.Path)
	assert.Equal(t, []string{"foo.o"}, childNames(f.g, n))
	assert.Equal(t, []string{"build .o.a"}, n.Commands)
	for name, want := range map[string]string{
		domain.VarArchive: "lib.a",
		domain.VarMember:  "foo.o",
		domain.VarTarget:  "foo.o",
		domain.VarPrefix:  "foo",
	} {
		got, _ := n.Var(name)
		assert.Equal(t, want, got, name)
	}

	mem, _ := f.g.Find("foo.o")
	assert.Equal(t, []string{"foo.c"}, childNames(f.g, mem))
}

func TestResolve_Library(t *testing.T) {
	f := newFixture(".a")
	require.NoError(t, f.st.MarkProperty(".a", domain.PropLibrary))
	f.files["libm.a"] = "/usr/lib/libm.a"
	r := f.resolver(t)

	n := f.g.FindOrCreate("-lm")
	suffix.MarkName(n)
	require.True(t, n.Mods.Library)
	require.NoError(t, r.Resolve(n.ID))

	assert.Equal(t, "/usr/lib/libm.a", n.Path)
	target, _ := n.Var(domain.VarTarget)
	assert.Equal(t, "libm.a", target)
}

func TestExpandChildren(t *testing.T) {
	f := newFixture(".c")
	f.globs["*.c"] = []string{"a.c", "b.c"}
	r := f.resolver(t)

	all := f.g.FindOrCreate("all")
	require.NoError(t, r.ExpandChildren(all, []string{"*.c lib.a(x.o y.o)", "-lz", "*.none"}))

	assert.Equal(t,
		[]string{"a.c", "b.c", "lib.a(x.o)", "lib.a(y.o)", "-lz", "*.none"},
		childNames(f.g, all))

	x, _ := f.g.Find("lib.a(x.o)")
	assert.Equal(t, domain.KindArchiveMember, x.Kind)
	z, _ := f.g.Find("-lz")
	assert.True(t, z.Mods.Library)
}
