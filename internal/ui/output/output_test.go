package output_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/mk/internal/ui/output"
)

func TestColorProfile_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfile())
	assert.Equal(t, termenv.Ascii, output.ColorProfileANSI())
}

func TestColorProfileANSI(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	assert.Equal(t, termenv.ANSI, output.ColorProfileANSI())
}

func TestForTerminal(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer

	plain := output.ForTerminal(&buf, false)
	assert.Equal(t, termenv.ANSI, plain.Profile)

	_, _ = plain.WriteString("job output")
	assert.Equal(t, "job output", buf.String())
}

func TestNew_NilWriter(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = output.New(nil)
	})
}
