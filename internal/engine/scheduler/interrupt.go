package scheduler

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// interrupt stops the run after sig: every job is signaled and reaped, the
// partial targets are removed and .INTERRUPT runs once. sig is then raised
// again with its default disposition.
func (r *run) interrupt(sig os.Signal) error {
	r.s.logger.Warn("interrupted by " + sig.String())
	r.stopAll(sig)
	r.interruptHook()
	r.s.raiser.Raise(sig)
	return zerr.With(domain.ErrInterrupted, "signal", sig.String())
}

// cancel is interrupt for a cancelled context. Nothing is raised.
func (r *run) cancel() error {
	r.stopAll(syscall.SIGTERM)
	r.interruptHook()
	return errors.Join(zerr.With(domain.ErrInterrupted, "signal", syscall.SIGTERM.String()), r.ctx.Err())
}

func (r *run) stopAll(sig os.Signal) {
	r.aborting = true
	var building []*domain.Node
	for _, id := range slices.Sorted(maps.Keys(r.jobs)) {
		j := r.jobs[id]
		if !j.special {
			building = append(building, j.node)
		}
		if err := j.proc.Signal(sig); err != nil {
			r.s.logger.Warn(fmt.Sprintf("failed to signal %s: %v", r.name(j.node), err))
		}
		if j.stopped {
			_ = j.proc.Signal(syscall.SIGCONT)
		}
	}
	r.drain()
	if !r.s.opts.DryRun {
		r.removeTargets(building)
	}
}

// drain waits for every job to go away. Signals arriving meanwhile are
// dropped.
func (r *run) drain() {
	timer := time.NewTimer(r.s.opts.PollInterval)
	defer timer.Stop()
	for len(r.jobs) > 0 {
		r.wait(timer)
		r.reap()
	}
	r.pending = nil
}

func (r *run) interruptHook() {
	if r.interruptRan {
		return
	}
	r.interruptRan = true
	n, ok := r.s.g.Find(domain.TargetInterrupt)
	if !ok || len(n.Commands) == 0 {
		return
	}
	n.Mods.Special = true
	n.Status = domain.StatusRequested
	p, err := r.commands(n)
	if err != nil {
		r.s.logger.Error(err)
		return
	}
	r.execute(n, p)
	r.drain()
}

// removeTargets deletes the files of interrupted nodes unless they are
// precious.
func (r *run) removeTargets(nodes []*domain.Node) {
	for _, n := range nodes {
		if n.Mods.Precious || !n.IsFile() || n.Kind == domain.KindArchiveMember {
			continue
		}
		err := os.Remove(r.path(n))
		switch {
		case err == nil:
			r.s.renderer.OnMessage(fmt.Sprintf("*** %s removed", r.name(n)))
		case !errors.Is(err, fs.ErrNotExist):
			r.s.logger.Warn(fmt.Sprintf("failed to remove %s: %v", r.name(n), err))
		}
	}
}

func (r *run) path(n *domain.Node) string {
	p := n.File()
	if n.Main != domain.NoNode && n.Path == "" {
		p = r.name(n)
	}
	if filepath.IsAbs(p) || r.s.dir == "" {
		return p
	}
	return filepath.Join(r.s.dir, p)
}

// touch brings the timestamp of n's file to now instead of running its
// commands.
func (r *run) touch(n *domain.Node) {
	if !r.s.opts.Silent && !n.Mods.Silent {
		r.s.renderer.OnMessage("touch " + r.name(n))
	}
	if !n.IsFile() || n.Kind == domain.KindArchiveMember {
		return
	}
	if err := touchFile(r.path(n), r.s.now()); err != nil {
		r.s.logger.Error(zerr.With(zerr.Wrap(err, domain.ErrTouchFailed.Error()), "target", r.name(n)))
	}
}

func touchFile(path string, now time.Time) error {
	err := os.Chtimes(path, now, now)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return err
	}
	return f.Close()
}
