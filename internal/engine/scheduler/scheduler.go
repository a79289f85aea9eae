// Package scheduler walks the dependency graph and runs the commands of out
// of date nodes as child processes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"syscall"
	"time"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Resolver finds implicit sources of a node.
type Resolver interface {
	Resolve(h domain.Handle) error
}

// Evaluator judges and refreshes node timestamps.
type Evaluator interface {
	Stat(n *domain.Node) error
	OutOfDate(n *domain.Node) (bool, error)
	Propagate(n *domain.Node)
	Recheck(n *domain.Node) error
	Assume(n *domain.Node)
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	Graph     *domain.Graph
	Resolver  Resolver
	Evaluator Evaluator
	Executor  ports.Executor
	Expander  ports.Expander
	Renderer  ports.Renderer
	Logger    ports.Logger
	Tracer    ports.Tracer
	Raiser    ports.Raiser
	Inbox     *Inbox
	// Globals is the variable scope below every node's local variables.
	Globals domain.Scope
	// Dir is the directory jobs run in and relative targets live in.
	Dir string
}

// Scheduler runs one build over a graph. It is not safe for concurrent use:
// the calling goroutine owns the graph for the duration of Run.
type Scheduler struct {
	g        *domain.Graph
	resolver Resolver
	eval     Evaluator
	executor ports.Executor
	expander ports.Expander
	renderer ports.Renderer
	logger   ports.Logger
	tracer   ports.Tracer
	raiser   ports.Raiser
	inbox    *Inbox
	globals  domain.Scope
	dir      string
	opts     domain.Options
	now      func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(deps Deps, opts domain.Options) *Scheduler {
	return &Scheduler{
		g:        deps.Graph,
		resolver: deps.Resolver,
		eval:     deps.Evaluator,
		executor: deps.Executor,
		expander: deps.Expander,
		renderer: deps.Renderer,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		raiser:   deps.Raiser,
		inbox:    deps.Inbox,
		globals:  deps.Globals,
		dir:      deps.Dir,
		opts:     opts.Normalize(),
		now:      time.Now,
	}
}

// run is the state of one Run call.
type run struct {
	s   *Scheduler
	ctx context.Context

	done   <-chan struct{}
	events chan event

	ready   []*domain.Node
	jobs    map[int]*job
	nextJob int
	running int

	errs     []error
	aborting bool
	fatal    error
	outdated bool

	pending      []os.Signal
	cancelled    bool
	interruptRan bool
}

// Run builds targets. It returns nil when every target is made or up to
// date, ErrQueryOutOfDate in query mode when anything needs work, the spawn
// error when a process could not be created, and an error joined with
// ErrBuildFailed when commands failed or the graph cycles. An interrupt
// runs .INTERRUPT, re-raises the signal and returns ErrInterrupted.
func (s *Scheduler) Run(ctx context.Context, targets []domain.Handle) error {
	r := &run{
		s:      s,
		ctx:    ctx,
		done:   ctx.Done(),
		events: make(chan event, 64),
		jobs:   make(map[int]*job),
	}

	if err := r.special(domain.TargetBegin); err != nil {
		return err
	}
	if len(r.errs) > 0 {
		return r.result(nil)
	}

	r.prepare(targets)
	if err := r.loop(); err != nil {
		return err
	}
	if r.outdated {
		return domain.ErrQueryOutOfDate
	}

	cycle := r.detectCycle(targets)
	r.report(targets)
	if len(r.errs) == 0 && cycle == nil {
		if err := r.special(domain.TargetEnd); err != nil {
			return err
		}
	}
	return r.result(cycle)
}

func (r *run) result(cycle error) error {
	errs := slices.Clone(r.errs)
	if cycle != nil {
		errs = append(errs, cycle)
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{domain.ErrBuildFailed}, errs...)...)
}

// limit is the concurrency ceiling. Every job runs on this host, so the
// local ceiling binds as well.
func (r *run) limit() int {
	return min(r.s.opts.Jobs, r.s.opts.MaxLocal)
}

func (r *run) slotFree(n *domain.Node) bool {
	return n.Mods.Special || r.running < r.limit()
}

func (r *run) name(n *domain.Node) string {
	return r.s.g.DisplayName(n.ID)
}

// loop runs until no job is left and nothing more can start.
func (r *run) loop() error {
	timer := time.NewTimer(r.s.opts.PollInterval)
	defer timer.Stop()

	for {
		if sig, ok := r.takeSignals(); ok {
			return r.interrupt(sig)
		}
		if r.cancelled {
			return r.cancel()
		}

		r.resumeParked()
		r.startJobs()

		if len(r.jobs) == 0 {
			if r.fatal != nil {
				return r.fatal
			}
			if len(r.ready) == 0 || r.aborting {
				return nil
			}
			continue
		}

		r.wait(timer)
		r.reap()
	}
}

// wait blocks until output arrives, a signal is posted, the context ends or
// the poll interval passes.
func (r *run) wait(timer *time.Timer) {
	timer.Reset(r.s.opts.PollInterval)
	select {
	case ev := <-r.events:
		r.handle(ev)
	case sig := <-r.s.inbox.C():
		r.pending = append(r.pending, sig)
	case <-r.done:
		r.done = nil
		r.cancelled = true
	case <-timer.C:
	}
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		default:
			return
		}
	}
}

// takeSignals drains the inbox. SIGCONT resumes parked jobs; the first
// interrupt signal is returned.
func (r *run) takeSignals() (os.Signal, bool) {
	r.pending = append(r.pending, r.s.inbox.drain()...)
	sigs := r.pending
	r.pending = nil
	for _, sig := range sigs {
		if sig == syscall.SIGCONT {
			r.resume()
			continue
		}
		if isInterrupt(sig) {
			return sig, true
		}
	}
	return nil, false
}

func (r *run) handle(ev event) {
	j, ok := r.jobs[ev.job]
	if !ok || j.gen != ev.gen {
		return
	}
	if len(ev.data) > 0 {
		for _, line := range j.lines(ev.data) {
			r.s.renderer.OnJobLine(j.id, line)
		}
	}
	if ev.eof {
		if rest := j.flush(); rest != nil {
			r.s.renderer.OnJobLine(j.id, rest)
		}
		j.eof = true
		if j.done() {
			r.finish(j)
		}
	}
}

// reap polls every job without blocking.
func (r *run) reap() {
	for _, id := range slices.Sorted(maps.Keys(r.jobs)) {
		j, ok := r.jobs[id]
		if !ok || j.exited {
			continue
		}
		st, err := j.proc.Poll()
		if err != nil {
			r.s.logger.Warn(fmt.Sprintf("failed to reap %s: %v", r.name(j.node), err))
			st = domain.ProcState{Event: domain.ProcExited, Code: -1}
		}
		switch st.Event {
		case domain.ProcRunning:
		case domain.ProcStopped:
			if !j.stopped {
				j.stopped = true
				if !j.special {
					r.running--
				}
				r.s.renderer.OnMessage(fmt.Sprintf("*** [%s] Stopped -- signal %s", r.name(j.node), st.Signal))
			}
		case domain.ProcContinued:
			if j.stopped {
				j.stopped = false
				j.restart = false
				if !j.special {
					r.running++
				}
			}
		default:
			j.exited = true
			j.state = st
			if j.done() {
				r.finish(j)
			}
		}
	}
}

// startJobs examines ready nodes until the queue is empty or the next node
// needs a job slot that is not free.
func (r *run) startJobs() {
	for len(r.ready) > 0 && !r.aborting && r.fatal == nil {
		n := r.ready[0]
		if n.Status != domain.StatusRequested {
			r.ready = r.ready[1:]
			continue
		}
		p, err := r.plan(n)
		if err != nil {
			r.ready = r.ready[1:]
			r.fail(n, err)
			continue
		}
		if p.needsJob() && !r.slotFree(n) {
			return
		}
		r.ready = r.ready[1:]
		r.execute(n, p)
	}
}

// plan decides what to do with a ready node.
func (r *run) plan(n *domain.Node) (plan, error) {
	ood, err := r.s.eval.OutOfDate(n)
	if err != nil {
		r.s.logger.Warn(err.Error())
		ood = true
	}
	if !ood {
		return plan{}, nil
	}
	return r.commands(n)
}

func (r *run) commands(n *domain.Node) (plan, error) {
	r.sources(n)
	head, tail := domain.SplitTail(n.Commands)
	cmds, err := r.expandCommands(n, head)
	if err != nil {
		return plan{}, err
	}
	return plan{
		outOfDate: true,
		cmds:      cmds,
		run:       r.selectRun(n, cmds),
		tail:      tail,
	}, nil
}

func (r *run) execute(n *domain.Node, p plan) {
	switch {
	case !p.outOfDate:
		n.Status = domain.StatusUpToDate
		r.s.eval.Propagate(n)
		r.complete(n)
	case len(n.Commands) == 0:
		r.noCommands(n)
	case r.s.opts.Query:
		r.outdated = true
		r.aborting = true
	case r.s.opts.Touch:
		r.touch(n)
		r.made(n, p.tail)
	case !p.needsJob():
		for _, c := range p.cmds {
			r.s.renderer.OnMessage(c.Text)
		}
		n.Status = domain.StatusMade
		r.s.eval.Assume(n)
		r.saveTail(n, p.tail)
		r.complete(n)
	default:
		// A .MAKE job runs every line and echoes them itself.
		if r.s.opts.DryRun && !n.Mods.MakeAlways {
			for _, c := range p.cmds {
				if !c.Always {
					r.s.renderer.OnMessage(c.Text)
				}
			}
		}
		r.start(n, p)
	}
}

// noCommands settles an out of date node that has nothing to run.
func (r *run) noCommands(n *domain.Node) {
	switch {
	case len(n.Children) == 0 && !n.Exists() && n.Mods.Optional:
		n.Status = domain.StatusUpToDate
		r.s.eval.Propagate(n)
		r.complete(n)
	case len(n.Children) == 0 && !n.Exists() && n.IsFile() && n.Kind != domain.KindForce:
		parents := r.s.g.Names(n.Parents)
		msg := fmt.Sprintf("don't know how to make %s", r.name(n))
		if len(parents) > 0 {
			msg += fmt.Sprintf(" (needed by %s)", joinNames(parents))
		}
		r.s.renderer.OnMessage(msg)
		r.fail(n, zerr.With(zerr.With(domain.ErrDontKnowHowToMake, "target", r.name(n)), "parents", joinNames(parents)))
	default:
		r.made(n, nil)
	}
}

// start spawns the first process of a job for n.
func (r *run) start(n *domain.Node, p plan) {
	r.nextJob++
	j := &job{
		id:      r.nextJob,
		node:    n,
		tail:    p.tail,
		special: n.Mods.Special,
	}
	if r.s.opts.Compat {
		j.cmds = p.run
	} else {
		j.cmds = []domain.Command{{Text: script(p.run, func(c domain.Command) bool { return r.silent(n, c) })}}
	}

	_, j.span = r.s.tracer.Start(r.ctx, r.name(n), ports.WithKind("job"))
	j.span.SetAttribute("mk.target", r.name(n))
	n.Status = domain.StatusBeingMade
	r.s.renderer.OnJobStart(j.id, r.name(n))
	r.spawn(j)
}

// spawn starts j's next command. A failure to create the process is fatal
// for the run.
func (r *run) spawn(j *job) {
	n := j.node
	text := j.cmds[j.next].Text
	if r.s.opts.Compat {
		text = script(j.cmds[j.next:j.next+1], func(c domain.Command) bool { return r.silent(n, c) })
	}
	j.next++

	spec := &domain.ProcSpec{
		Target:  r.name(n),
		Shell:   r.s.opts.Shell,
		Script:  text,
		ErrExit: !r.ignoresErrors(n),
		Dir:     r.s.dir,
		Env:     r.s.opts.Env,
		PTY:     r.s.opts.PTY,
	}
	proc, err := r.s.executor.Start(r.ctx, spec)
	if err != nil {
		j.span.RecordError(err)
		j.span.End()
		r.s.renderer.OnJobComplete(j.id, err)
		n.Status = domain.StatusError
		r.errs = append(r.errs, err)
		r.fatal = err
		r.aborting = true
		for _, other := range r.jobs {
			_ = other.proc.Signal(syscall.SIGTERM)
		}
		return
	}

	j.gen++
	j.proc = proc
	j.exited, j.eof = false, false
	j.state = domain.ProcState{}
	r.jobs[j.id] = j
	if !j.special {
		r.running++
	}
	pump(j, r.events)
}

// finish settles a job whose process exited and whose output is drained.
func (r *run) finish(j *job) {
	delete(r.jobs, j.id)
	if !j.special && !j.stopped {
		r.running--
	}
	if err := j.proc.Close(); err != nil {
		r.s.logger.Warn(fmt.Sprintf("failed to release job %s: %v", r.name(j.node), err))
	}

	n := j.node
	st := j.state
	ok := st.Success()
	if !ok && r.ignoresErrors(n) {
		r.s.renderer.OnMessage(fmt.Sprintf("*** [%s] %s (ignored)", r.name(n), describe(st)))
		ok = true
	}

	if ok && j.next < len(j.cmds) && (!r.aborting || j.special) {
		r.spawn(j)
		return
	}

	if !ok {
		err := commandError(r.name(n), st)
		r.s.renderer.OnMessage(fmt.Sprintf("*** [%s] %s", r.name(n), describe(st)))
		r.s.renderer.OnJobComplete(j.id, err)
		j.span.RecordError(err)
		j.span.End()
		r.fail(n, err)
		return
	}

	r.s.renderer.OnJobComplete(j.id, nil)
	j.span.End()
	r.made(n, j.tail)
}

func describe(st domain.ProcState) string {
	if st.Event == domain.ProcSignaled {
		return "Signal " + st.Signal.String()
	}
	return fmt.Sprintf("Error code %d", st.Code)
}

func commandError(target string, st domain.ProcState) error {
	err := zerr.With(domain.ErrCommandFailed, "target", target)
	if st.Event == domain.ProcSignaled {
		return zerr.With(err, "signal", st.Signal.String())
	}
	return zerr.With(err, "exit_code", st.Code)
}

// resume continues stopped jobs after SIGCONT. Jobs that find no free slot
// are parked until one frees.
func (r *run) resume() {
	for _, id := range slices.Sorted(maps.Keys(r.jobs)) {
		j := r.jobs[id]
		if !j.stopped {
			continue
		}
		if !j.special && r.running >= r.limit() {
			j.restart = true
			continue
		}
		r.cont(j)
	}
}

// resumeParked continues jobs marked for restart while slots are free.
func (r *run) resumeParked() {
	for _, id := range slices.Sorted(maps.Keys(r.jobs)) {
		j := r.jobs[id]
		if j.stopped && j.restart && (j.special || r.running < r.limit()) {
			r.cont(j)
		}
	}
}

func (r *run) cont(j *job) {
	if err := j.proc.Signal(syscall.SIGCONT); err != nil {
		r.s.logger.Warn(fmt.Sprintf("failed to resume %s: %v", r.name(j.node), err))
		return
	}
	j.stopped = false
	j.restart = false
	if !j.special {
		r.running++
	}
}
