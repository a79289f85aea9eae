package domain

import "time"

// DefaultPollInterval bounds how long the scheduler waits for output before
// it reaps children again.
const DefaultPollInterval = 50 * time.Millisecond

// DefaultShell runs job scripts.
const DefaultShell = "/bin/sh"

// Options are the run-wide knobs of a build session.
type Options struct {
	// Jobs is the concurrency ceiling.
	Jobs int `koanf:"jobs"`
	// MaxLocal bounds jobs that run on this host.
	MaxLocal int `koanf:"max_local"`
	// KeepGoing continues independent branches after a failure.
	KeepGoing bool `koanf:"keep_going"`
	// DryRun prints commands instead of running them.
	DryRun bool `koanf:"dry_run"`
	// Touch updates timestamps instead of running commands.
	Touch bool `koanf:"touch"`
	// Query runs nothing and reports whether anything is out of date.
	Query bool `koanf:"query"`
	// Silent suppresses all command echo.
	Silent bool `koanf:"silent"`
	// IgnoreErrors tolerates every nonzero exit.
	IgnoreErrors bool `koanf:"ignore_errors"`
	// Compat runs one subprocess per command.
	Compat bool `koanf:"compat"`
	// PTY runs jobs on a pseudo terminal.
	PTY bool `koanf:"pty"`
	// Shell interprets job scripts.
	Shell string `koanf:"shell"`
	// PollInterval is the upper bound on one scheduler wait.
	PollInterval time.Duration `koanf:"poll_interval"`
	// Env is appended to the environment of every job.
	Env []string `koanf:"env"`
}

// Normalize fills unset fields with their defaults.
func (o Options) Normalize() Options {
	if o.Jobs < 1 {
		o.Jobs = 1
	}
	if o.MaxLocal < 1 {
		o.MaxLocal = o.Jobs
	}
	if o.Shell == "" {
		o.Shell = DefaultShell
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}
