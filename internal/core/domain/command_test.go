package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/mk/internal/core/domain"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want domain.Command
	}{
		{"cc -c foo.c", domain.Command{Text: "cc -c foo.c"}},
		{"@echo hi", domain.Command{Text: "echo hi", Silent: true}},
		{"-rm -f x", domain.Command{Text: "rm -f x", IgnoreErrors: true}},
		{"+$(MAKE) sub", domain.Command{Text: "$(MAKE) sub", Always: true}},
		{"  @- +  false  ", domain.Command{Text: "false", Silent: true, IgnoreErrors: true, Always: true}},
		{"@", domain.Command{Silent: true}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseCommand(tt.line))
		})
	}
}

func TestSplitTail(t *testing.T) {
	head, tail := domain.SplitTail([]string{"a", "b", " ... ", "c"})
	assert.Equal(t, []string{"a", "b"}, head)
	assert.Equal(t, []string{"c"}, tail)

	head, tail = domain.SplitTail([]string{"a"})
	assert.Equal(t, []string{"a"}, head)
	assert.Nil(t, tail)
}

func TestParseMember(t *testing.T) {
	archive, member, ok := domain.ParseMember("libfoo.a(bar.o)")
	assert.True(t, ok)
	assert.Equal(t, "libfoo.a", archive)
	assert.Equal(t, "bar.o", member)

	for _, bad := range []string{"bar.o", "(bar.o)", "lib.a()", "lib.a(bar.o"} {
		_, _, ok := domain.ParseMember(bad)
		assert.False(t, ok, bad)
	}
}

func TestExpandMembers(t *testing.T) {
	assert.Equal(t,
		[]string{"lib.a(a.o)", "lib.a(b.o)"},
		domain.ExpandMembers("lib.a(a.o b.o)"))
	assert.Equal(t, []string{"plain"}, domain.ExpandMembers("plain"))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a.o", "lib.a(x.o y.o)", "b"}, domain.SplitWords(" a.o\tlib.a(x.o y.o)  b\n"))
	assert.Empty(t, domain.SplitWords("   "))
	assert.Equal(t, []string{"x)", "y"}, domain.SplitWords("x) y"))
}

func TestLibraryName(t *testing.T) {
	lib, ok := domain.LibraryName("-lm")
	assert.True(t, ok)
	assert.Equal(t, "libm", lib)

	_, ok = domain.LibraryName("-l")
	assert.False(t, ok)
	_, ok = domain.LibraryName("m.o")
	assert.False(t, ok)
}

func TestApplyAttr(t *testing.T) {
	g := domain.NewGraph()
	n := g.FindOrCreate("all")

	assert.NoError(t, domain.ApplyAttr(n, domain.AttrPhony))
	assert.NoError(t, domain.ApplyAttr(n, domain.AttrPrecious))
	assert.Equal(t, domain.KindPhony, n.Kind)
	assert.True(t, n.Mods.Precious)

	err := domain.ApplyAttr(n, "shiny")
	assert.ErrorContains(t, err, "malformed declaration")
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]domain.Operator{"": domain.OpDepends, ":": domain.OpDepends, "!": domain.OpForce, "::": domain.OpEach} {
		got, err := domain.ParseOperator(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := domain.ParseOperator(":=")
	assert.Error(t, err)
}

func TestOptionsNormalize(t *testing.T) {
	o := domain.Options{}.Normalize()
	assert.Equal(t, 1, o.Jobs)
	assert.Equal(t, 1, o.MaxLocal)
	assert.Equal(t, domain.DefaultShell, o.Shell)
	assert.Equal(t, domain.DefaultPollInterval, o.PollInterval)

	o = domain.Options{Jobs: 8}.Normalize()
	assert.Equal(t, 8, o.MaxLocal)
}
