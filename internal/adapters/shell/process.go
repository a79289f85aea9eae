package shell

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"go.trai.ch/mk/internal/core/domain"
	"golang.org/x/sys/unix"
)

// process is one running job script.
type process struct {
	cmd    *exec.Cmd
	pid    int
	script string
	out    *os.File

	mu    sync.Mutex
	final *domain.ProcState
	once  sync.Once
}

func (p *process) Pid() int { return p.pid }

func (p *process) Output() io.Reader { return p.out }

// Poll reaps the process with WNOHANG and also reports stops and resumes.
// Once the process is gone the final state is returned on every call.
func (p *process) Poll() (domain.ProcState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.final != nil {
		return *p.final, nil
	}

	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return domain.ProcState{}, err
		}
		if pid == 0 {
			return domain.ProcState{Event: domain.ProcRunning}, nil
		}
		break
	}

	var st domain.ProcState
	switch {
	case ws.Exited():
		st = domain.ProcState{Event: domain.ProcExited, Code: ws.ExitStatus()}
	case ws.Signaled():
		st = domain.ProcState{Event: domain.ProcSignaled, Signal: syscall.Signal(ws.Signal())}
	case ws.Stopped():
		return domain.ProcState{Event: domain.ProcStopped, Signal: syscall.Signal(ws.StopSignal())}, nil
	case ws.Continued():
		return domain.ProcState{Event: domain.ProcContinued}, nil
	default:
		return domain.ProcState{Event: domain.ProcRunning}, nil
	}
	p.final = &st
	return st, nil
}

// Signal delivers sig to the whole process group. A group that is already
// gone is not an error.
func (p *process) Signal(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return p.cmd.Process.Signal(sig)
	}
	p.mu.Lock()
	gone := p.final != nil
	p.mu.Unlock()
	if gone {
		return nil
	}
	if err := unix.Kill(-p.pid, s); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// Close releases the output stream and removes the script.
func (p *process) Close() error {
	var err error
	p.once.Do(func() {
		err = errors.Join(p.out.Close(), removeScript(p.script))
		_ = p.cmd.Process.Release()
	})
	return err
}

func removeScript(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
