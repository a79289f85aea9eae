package domain

import "syscall"

// ProcSpec describes one job subprocess.
type ProcSpec struct {
	// Target names the node the process builds.
	Target string
	// Shell interprets Script.
	Shell string
	// Script is the shell text to run.
	Script string
	// ErrExit runs the shell with -e.
	ErrExit bool
	Dir     string
	Env     []string
	// PTY attaches the process to a pseudo terminal instead of a pipe.
	PTY bool
}

// ProcEvent classifies a state change reported by a reap.
type ProcEvent uint8

const (
	// ProcRunning means nothing changed since the last poll.
	ProcRunning ProcEvent = iota
	// ProcExited means the process ended with an exit code.
	ProcExited
	// ProcSignaled means the process was killed by a signal.
	ProcSignaled
	// ProcStopped means the process was stopped by a signal.
	ProcStopped
	// ProcContinued means a stopped process resumed.
	ProcContinued
)

// ProcState is the outcome of one non-blocking reap.
type ProcState struct {
	Event  ProcEvent
	Code   int
	Signal syscall.Signal
}

// Done reports whether the process is gone.
func (s ProcState) Done() bool {
	return s.Event == ProcExited || s.Event == ProcSignaled
}

// Success reports a clean exit.
func (s ProcState) Success() bool {
	return s.Event == ProcExited && s.Code == 0
}
