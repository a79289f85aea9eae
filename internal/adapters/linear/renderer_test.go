package linear_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/mk/internal/adapters/linear"
)

func TestRenderer_Banners(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf, false, true)

	r.OnJobStart(1, "a.o")
	r.OnJobStart(2, "b.o")
	r.OnJobLine(1, []byte("cc -c a.c"))
	r.OnJobLine(1, []byte("a.c:1: warning"))
	r.OnJobLine(2, []byte("cc -c b.c"))
	r.OnJobLine(1, []byte("done"))
	r.OnJobComplete(1, nil)
	r.OnJobComplete(2, errors.New("exit 1"))
	r.OnMessage("*** [b.o] Error code 1")

	want := "--- a.o ---\n" +
		"cc -c a.c\n" +
		"a.c:1: warning\n" +
		"--- b.o ---\n" +
		"cc -c b.c\n" +
		"--- a.o ---\n" +
		"done\n" +
		"*** [b.o] Error code 1\n"
	assert.Equal(t, want, buf.String())
	assert.NoError(t, r.Stop())
}

func TestRenderer_BannerAfterMessage(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf, false, true)

	r.OnJobStart(1, "prog")
	r.OnJobLine(1, []byte("one"))
	r.OnMessage("`lib' is up to date.")
	r.OnJobLine(1, []byte("two"))

	assert.Equal(t, "--- prog ---\none\n`lib' is up to date.\n--- prog ---\ntwo\n", buf.String())
}

func TestRenderer_NoBanners(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf, false, false)

	r.OnJobStart(1, "a")
	r.OnJobStart(2, "b")
	r.OnJobLine(1, []byte("x"))
	r.OnJobLine(2, []byte("y"))

	assert.Equal(t, "x\ny\n", buf.String())
}
