package ports

// Renderer presents job output.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnJobStart is called when a job for target starts.
	OnJobStart(jobID int, target string)
	// OnJobLine is called with one complete output line, newline stripped.
	OnJobLine(jobID int, line []byte)
	// OnJobComplete is called once the job is gone. err is nil on success.
	OnJobComplete(jobID int, err error)
	// OnMessage prints a line that belongs to no job, such as a dry-run echo
	// or a final status.
	OnMessage(msg string)
	// Stop flushes buffered output.
	Stop() error
}
