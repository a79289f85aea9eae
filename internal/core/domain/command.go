package domain

import "strings"

// TailMarker separates a node's commands from the ones deferred to .END.
const TailMarker = "..."

// Command is one command line with its leading markers stripped.
type Command struct {
	Text string
	// Silent ('@') suppresses the echo of this line.
	Silent bool
	// IgnoreErrors ('-') tolerates a nonzero exit of this line.
	IgnoreErrors bool
	// Always ('+') runs the line even in dry-run or touch mode.
	Always bool
}

// ParseCommand strips any combination of leading '@', '-' and '+' markers
// and surrounding blanks from line.
func ParseCommand(line string) Command {
	var c Command
	s := strings.TrimLeft(line, " \t")
	for len(s) > 0 {
		switch s[0] {
		case '@':
			c.Silent = true
		case '-':
			c.IgnoreErrors = true
		case '+':
			c.Always = true
		default:
			c.Text = strings.TrimSpace(s)
			return c
		}
		s = strings.TrimLeft(s[1:], " \t")
	}
	return c
}

// SplitTail splits raw commands at the first TailMarker line. The lines after
// the marker only run once the whole build succeeded.
func SplitTail(cmds []string) (head, tail []string) {
	for i, c := range cmds {
		if strings.TrimSpace(c) == TailMarker {
			return cmds[:i], cmds[i+1:]
		}
	}
	return cmds, nil
}
