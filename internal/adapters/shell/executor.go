// Package shell runs job scripts under a shell.
package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/creack/pty"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor by writing each script to a temporary
// file and running it in its own process group.
type Executor struct {
	tmpDir string
}

// NewExecutor creates an Executor that keeps scripts in the system temp dir.
func NewExecutor() *Executor {
	return &Executor{}
}

// Start writes spec.Script to a file and runs it. The process is not tied to
// ctx; callers stop it with Signal.
func (e *Executor) Start(_ context.Context, spec *domain.ProcSpec) (ports.Process, error) {
	script, err := e.writeScript(spec)
	if err != nil {
		return nil, err
	}

	env := resolveEnvironment(os.Environ(), spec.Env)
	shell := spec.Shell
	if shell == "" {
		shell = domain.DefaultShell
	}
	if !filepath.IsAbs(shell) {
		if lp, lerr := lookPath(shell, env); lerr == nil {
			shell = lp
		}
	}

	args := []string{script}
	if spec.ErrExit {
		args = []string{"-e", script}
	}
	cmd := exec.Command(shell, args...) //nolint:gosec // the shell comes from the user's settings
	cmd.Dir = spec.Dir
	cmd.Env = env

	p := &process{script: script}
	if spec.PTY {
		err = p.startPTY(cmd)
	} else {
		err = p.startPipe(cmd)
	}
	if err != nil {
		_ = os.Remove(script)
		return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrSpawnFailed.Error()),
			"target", spec.Target), "shell", shell)
	}
	p.pid = cmd.Process.Pid
	p.cmd = cmd
	return p, nil
}

func (e *Executor) writeScript(spec *domain.ProcSpec) (string, error) {
	f, err := os.CreateTemp(e.tmpDir, domain.ScriptPattern)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrTempFileFailed.Error()), "target", spec.Target)
	}
	name := f.Name()
	_, werr := f.WriteString(spec.Script)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(name)
		return "", zerr.With(zerr.With(zerr.Wrap(werr, domain.ErrTempFileFailed.Error()),
			"target", spec.Target), "path", name)
	}
	return name, nil
}

func (p *process) startPipe(cmd *exec.Cmd) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return err
	}
	// The child holds its own copy; EOF arrives once it and its children exit.
	_ = w.Close()
	p.out = r
	return nil
}

// startPTY runs cmd as the leader of a new session on a pseudo terminal, so
// its pid is also its process group.
func (p *process) startPTY(cmd *exec.Cmd) error {
	master, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	p.out = master
	return nil
}

// resolveEnvironment layers job variables over the inherited environment.
// Later entries win; the order of first appearance is kept.
func resolveEnvironment(sysEnv, jobEnv []string) []string {
	index := make(map[string]int, len(sysEnv)+len(jobEnv))
	result := make([]string, 0, len(sysEnv)+len(jobEnv))
	for _, list := range [][]string{sysEnv, jobEnv} {
		for _, entry := range list {
			k, _, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if i, seen := index[k]; seen {
				result[i] = entry
				continue
			}
			index[k] = len(result)
			result = append(result, entry)
		}
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
