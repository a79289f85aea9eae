package domain

import "go.trai.ch/zerr"

var (
	// ErrConfig is returned for a malformed suffix, transform, operator or
	// attribute declaration. The declaration is dropped.
	ErrConfig = zerr.New("malformed declaration")

	// ErrUnknownSuffix is returned when a property or path names a suffix that
	// was never declared.
	ErrUnknownSuffix = zerr.New("unknown suffix")

	// ErrGraphCycle is returned when the dependency graph cycles.
	ErrGraphCycle = zerr.New("graph cycles")

	// ErrCommandFailed is returned when a command exits nonzero or dies by a signal.
	ErrCommandFailed = zerr.New("command failed")

	// ErrSpawnFailed is returned when a job process cannot be created.
	ErrSpawnFailed = zerr.New("failed to start job")

	// ErrTempFileFailed is returned when a job script cannot be written.
	ErrTempFileFailed = zerr.New("failed to write job script")

	// ErrDontKnowHowToMake is returned when a needed node has no commands, no
	// sources and no file.
	ErrDontKnowHowToMake = zerr.New("don't know how to make")

	// ErrNotRemade is returned for requested targets blocked by an error.
	ErrNotRemade = zerr.New("not remade because of errors")

	// ErrUnknownTarget is returned when a requested target was never declared
	// and does not exist.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrNoTargets is returned when nothing was requested and no default
	// target exists.
	ErrNoTargets = zerr.New("no target to make")

	// ErrInterrupted is returned when the run was stopped by a signal.
	ErrInterrupted = zerr.New("interrupted")

	// ErrBuildFailed is returned when a run finished with errors.
	ErrBuildFailed = zerr.New("build failed")

	// ErrQueryOutOfDate is returned in query mode when something needs work.
	ErrQueryOutOfDate = zerr.New("targets are out of date")

	// ErrTouchFailed is returned when a target cannot be touched.
	ErrTouchFailed = zerr.New("failed to touch target")

	// ErrExpandFailed is returned when a command or source cannot be expanded.
	ErrExpandFailed = zerr.New("failed to expand")

	// ErrDeclFileNotFound is returned when no declaration file can be found.
	ErrDeclFileNotFound = zerr.New("could not find mkfile")

	// ErrDeclReadFailed is returned when the declaration file cannot be read.
	ErrDeclReadFailed = zerr.New("failed to read mkfile")

	// ErrDeclParseFailed is returned when the declaration file cannot be parsed.
	ErrDeclParseFailed = zerr.New("failed to parse mkfile")

	// ErrSettingsLoadFailed is returned when settings cannot be layered.
	ErrSettingsLoadFailed = zerr.New("failed to load settings")

	// ErrArchiveReadFailed is returned when an archive cannot be read.
	ErrArchiveReadFailed = zerr.New("failed to read archive")

	// ErrWatchFailed is returned when the file watcher cannot start.
	ErrWatchFailed = zerr.New("failed to watch files")
)
