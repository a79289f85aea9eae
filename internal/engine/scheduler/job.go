package scheduler

import (
	"bytes"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
)

const readChunk = 4096

// job is one node being built. In compat mode a job runs its commands one
// process at a time; gen tells the output of successive processes apart.
type job struct {
	id      int
	gen     int
	node    *domain.Node
	proc    ports.Process
	cmds    []domain.Command
	next    int
	tail    []string
	special bool

	stopped bool
	restart bool
	exited  bool
	eof     bool
	state   domain.ProcState

	partial []byte
	span    ports.Span
}

// event carries output of one job process to the control loop.
type event struct {
	job  int
	gen  int
	data []byte
	eof  bool
}

// pump forwards the output of j's current process until EOF.
func pump(j *job, events chan<- event) {
	out := j.proc.Output()
	if out == nil {
		j.eof = true
		return
	}
	id, gen := j.id, j.gen
	go func() {
		buf := make([]byte, readChunk)
		for {
			n, err := out.Read(buf)
			if n > 0 {
				events <- event{job: id, gen: gen, data: bytes.Clone(buf[:n])}
			}
			if err != nil {
				events <- event{job: id, gen: gen, eof: true}
				return
			}
		}
	}()
}

// lines appends data to the partial line and returns every completed line.
func (j *job) lines(data []byte) [][]byte {
	j.partial = append(j.partial, data...)
	var out [][]byte
	for {
		i := bytes.IndexByte(j.partial, '\n')
		if i < 0 {
			return out
		}
		line := bytes.TrimSuffix(j.partial[:i], []byte{'\r'})
		out = append(out, bytes.Clone(line))
		j.partial = j.partial[i+1:]
	}
}

// flush returns the unterminated rest of the output, if any.
func (j *job) flush() []byte {
	if len(j.partial) == 0 {
		return nil
	}
	rest := j.partial
	j.partial = nil
	return rest
}

func (j *job) done() bool {
	return j.exited && j.eof
}
