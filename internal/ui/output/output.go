// Package output creates termenv outputs with the color profile mk uses for
// a given kind of destination.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorProfile is the profile for an interactive terminal. NO_COLOR forces
// plain text.
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// ColorProfileANSI is the profile for logs and CI: basic ANSI colors unless
// NO_COLOR is set.
func ColorProfileANSI() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.ANSI
}

// New creates an output on w using the interactive profile. A nil w writes
// to stderr.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	return NewWithProfile(w, ColorProfile, opts...)
}

// ForTerminal picks the interactive profile when tty is set and the ANSI
// profile otherwise.
func ForTerminal(w io.Writer, tty bool) *termenv.Output {
	if tty {
		return New(w)
	}
	return NewWithProfile(w, ColorProfileANSI)
}

// NewWithProfile creates an output on w with the profile chosen by profileFn.
func NewWithProfile(w io.Writer, profileFn func() termenv.Profile, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	opts = append(opts,
		termenv.WithProfile(profileFn()),
		termenv.WithTTY(true),
	)
	return termenv.NewOutput(w, opts...)
}
