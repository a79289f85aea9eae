package oodate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports/mocks"
	"go.trai.ch/mk/internal/engine/oodate"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

type env struct {
	g        *domain.Graph
	dirs     *mocks.MockDirCache
	archives *mocks.MockArchiveReader
	e        *oodate.Evaluator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)
	g := domain.NewGraph()
	dirs := mocks.NewMockDirCache(ctrl)
	archives := mocks.NewMockArchiveReader(ctrl)
	return &env{
		g:        g,
		dirs:     dirs,
		archives: archives,
		e:        oodate.NewEvaluator(g, domain.NewSuffixTable(), dirs, archives),
	}
}

func TestOutOfDate_ChildNewerThanParent(t *testing.T) {
	en := newEnv(t)
	parent := en.g.FindOrCreate("prog")
	child := en.g.FindOrCreate("main.o")
	en.g.Link(parent.ID, child.ID)

	for _, tt := range []struct {
		name   string
		parent time.Time
		child  time.Time
		want   bool
	}{
		{"child newer", at(0), at(1), true},
		{"same time", at(1), at(1), false},
		{"parent newer", at(2), at(1), false},
		{"parent missing", time.Time{}, at(1), true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			parent.Mtime, parent.Youngest, parent.ChildTime = tt.parent, domain.NoNode, time.Time{}
			child.Mtime = tt.child
			en.e.Propagate(child)

			got, err := en.e.OutOfDate(parent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutOfDate_Leaf(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("stamp")

	got, _ := en.e.OutOfDate(n)
	assert.True(t, got, "a missing leaf is remade")

	n.Mtime = at(0)
	got, _ = en.e.OutOfDate(n)
	assert.False(t, got)

	n.Mods.Each = true
	got, _ = en.e.OutOfDate(n)
	assert.True(t, got, "a childless '::' target is always remade")
}

func TestOutOfDate_Kinds(t *testing.T) {
	en := newEnv(t)

	for _, tt := range []struct {
		name string
		set  func(*domain.Node)
		want bool
	}{
		{"phony", func(n *domain.Node) { n.Kind = domain.KindPhony }, true},
		{"force", func(n *domain.Node) { n.Kind = domain.KindForce }, true},
		{"exec", func(n *domain.Node) { n.Mods.Exec = true }, true},
		{"use", func(n *domain.Node) { n.Kind = domain.KindUse }, false},
		{"join without made child", func(n *domain.Node) { n.Kind = domain.KindJoin }, false},
		{"join with made child", func(n *domain.Node) { n.Kind = domain.KindJoin; n.ChildMade = true }, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			n := en.g.FindOrCreate(tt.name)
			n.Mtime = at(10)
			tt.set(n)

			got, err := en.e.OutOfDate(n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPropagate_ThroughUntouchedIntermediate(t *testing.T) {
	en := newEnv(t)
	top := en.g.FindOrCreate("top")
	mid := en.g.FindOrCreate("mid")
	leaf := en.g.FindOrCreate("leaf")
	en.g.Link(top.ID, mid.ID)
	en.g.Link(mid.ID, leaf.ID)

	leaf.Mtime = at(5)
	mid.Mtime = at(6)
	top.Mtime = at(3)

	en.e.Propagate(leaf)
	ood, _ := en.e.OutOfDate(mid)
	require.False(t, ood)
	en.e.Propagate(mid)

	assert.Equal(t, mid.ID, top.Youngest)
	assert.Equal(t, at(6), top.ChildTime)
	ood, _ = en.e.OutOfDate(top)
	assert.True(t, ood)
}

func TestPropagate_KeepsYoungest(t *testing.T) {
	en := newEnv(t)
	p := en.g.FindOrCreate("p")
	a := en.g.FindOrCreate("a")
	b := en.g.FindOrCreate("b")
	en.g.Link(p.ID, a.ID)
	en.g.Link(p.ID, b.ID)

	a.Mtime = at(9)
	b.Mtime = at(4)
	en.e.Propagate(a)
	en.e.Propagate(b)

	assert.Equal(t, a.ID, p.Youngest)
	assert.Equal(t, at(9), p.ChildTime)
}

func TestStat_UsesSearchPath(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("foo.c")

	en.dirs.EXPECT().FindFile("foo.c", gomock.Any()).Return("src/foo.c", true)
	en.dirs.EXPECT().Mtime("src/foo.c").Return(at(7), true)

	require.NoError(t, en.e.Stat(n))
	assert.Equal(t, "src/foo.c", n.Path)
	assert.Equal(t, at(7), n.Mtime)
}

func TestStat_CohortUsesMainName(t *testing.T) {
	en := newEnv(t)
	main := en.g.FindOrCreate("log")
	c := en.g.AddCohort(main)

	en.dirs.EXPECT().FindFile("log", gomock.Any()).Return("", false)
	en.dirs.EXPECT().Mtime("log").Return(time.Time{}, false)

	require.NoError(t, en.e.Stat(c))
	assert.False(t, c.Exists())
}

func TestStat_PhonyIsNotStatted(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("all")
	n.Kind = domain.KindPhony

	require.NoError(t, en.e.Stat(n))
	assert.False(t, n.Exists())
}

func TestOutOfDate_ArchiveMemberNewerThanTOC(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("libfoo.a(bar.o)")
	n.Kind = domain.KindArchiveMember

	en.archives.EXPECT().MemberMtime("libfoo.a", "bar.o").Return(at(20), true, nil)
	en.archives.EXPECT().TOCMtime("libfoo.a").Return(at(10), true, nil)

	require.NoError(t, en.e.Stat(n))
	got, err := en.e.OutOfDate(n)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestOutOfDate_ArchiveMemberFresh(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("libfoo.a(bar.o)")
	n.Kind = domain.KindArchiveMember
	child := en.g.FindOrCreate("bar.o")
	en.g.Link(n.ID, child.ID)
	child.Mtime = at(5)
	en.e.Propagate(child)

	en.archives.EXPECT().MemberMtime("libfoo.a", "bar.o").Return(at(6), true, nil)
	en.archives.EXPECT().TOCMtime("libfoo.a").Return(at(6), true, nil)

	require.NoError(t, en.e.Stat(n))
	got, err := en.e.OutOfDate(n)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestOutOfDate_ArchiveMemberMissing(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("libfoo.a(gone.o)")
	n.Kind = domain.KindArchiveMember

	en.archives.EXPECT().MemberMtime("libfoo.a", "gone.o").Return(time.Time{}, false, nil)

	require.NoError(t, en.e.Stat(n))
	got, err := en.e.OutOfDate(n)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestStat_ArchiveReadFailure(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("broken.a(x.o)")
	n.Kind = domain.KindArchiveMember

	en.archives.EXPECT().MemberMtime("broken.a", "x.o").Return(time.Time{}, false, errors.New("bad magic"))

	err := en.e.Stat(n)
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "broken.a", zErr.Metadata()["archive"])
	assert.False(t, n.Exists())
}

func TestOutOfDate_LibraryTOCOlderThanArchive(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("-lfoo")
	n.Mods.Library = true
	n.Path = "libfoo.a"
	n.Mtime = at(10)

	en.archives.EXPECT().TOCMtime("libfoo.a").Return(at(8), true, nil)

	got, err := en.e.OutOfDate(n)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRecheck_MissingTargetCountsAsNow(t *testing.T) {
	en := newEnv(t)
	en.e.SetClock(func() time.Time { return at(60) })
	parent := en.g.FindOrCreate("prog")
	n := en.g.FindOrCreate("gen.h")
	en.g.Link(parent.ID, n.ID)
	parent.Mtime = at(30)

	en.dirs.EXPECT().Invalidate("gen.h")
	en.dirs.EXPECT().FindFile("gen.h", gomock.Any()).Return("", false)
	en.dirs.EXPECT().Mtime("gen.h").Return(time.Time{}, false)

	require.NoError(t, en.e.Recheck(n))

	assert.Equal(t, at(60), n.Mtime)
	assert.True(t, parent.ChildMade)
	assert.Equal(t, at(60), parent.ChildTime)
	ood, _ := en.e.OutOfDate(parent)
	assert.True(t, ood)
}

func TestRecheck_RestatsFile(t *testing.T) {
	en := newEnv(t)
	n := en.g.FindOrCreate("foo.o")
	n.Path = "obj/foo.o"
	n.Mtime = at(1)

	en.dirs.EXPECT().Invalidate("obj/foo.o")
	en.dirs.EXPECT().Mtime("obj/foo.o").Return(at(40), true)

	require.NoError(t, en.e.Recheck(n))
	assert.Equal(t, at(40), n.Mtime)
}
