// Package detector inspects the terminal mk is attached to.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode selects how job output is colored.
type OutputMode int

const (
	// ModeAuto follows the environment.
	ModeAuto OutputMode = iota
	// ModeInteractive uses the terminal's full color profile.
	ModeInteractive
	// ModePlain uses basic ANSI colors suitable for logs.
	ModePlain
)

// DetectEnvironment returns ModeInteractive when stdout is a terminal outside
// CI and ModePlain otherwise.
func DetectEnvironment() OutputMode {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	ci := os.Getenv("CI")
	if !isTTY || ci == "true" || ci == "1" {
		return ModePlain
	}
	return ModeInteractive
}

// ResolveMode applies the --color flag value to the detected mode. Unknown
// values keep the detected mode.
func ResolveMode(detected OutputMode, flag string) OutputMode {
	switch flag {
	case "always":
		return ModeInteractive
	case "never", "ci":
		return ModePlain
	default:
		return detected
	}
}

// StdinIsTerminal reports whether jobs could share the controlling terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
