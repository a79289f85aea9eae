package scheduler_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/core/ports/mocks"
	"go.trai.ch/mk/internal/engine/oodate"
	"go.trai.ch/mk/internal/engine/scheduler"
	"go.trai.ch/mk/internal/engine/suffix"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// fakeProc is a job process driven by the test.
type fakeProc struct {
	exec *fakeExec
	pid  int
	spec *domain.ProcSpec

	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	queue   []domain.ProcState
	state   domain.ProcState
	signals []os.Signal
	gone    bool

	onSignal func(p *fakeProc, sig os.Signal)
}

func (p *fakeProc) Pid() int          { return p.pid }
func (p *fakeProc) Output() io.Reader { return p.r }

func (p *fakeProc) Poll() (domain.ProcState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) > 0 {
		st := p.queue[0]
		p.queue = p.queue[1:]
		return st, nil
	}
	return p.state, nil
}

func (p *fakeProc) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	hook := p.onSignal
	p.mu.Unlock()
	p.exec.record(fmt.Sprintf("signal %s %v", p.spec.Target, sig))
	if hook != nil {
		hook(p, sig)
	}
	return nil
}

func (p *fakeProc) Close() error {
	p.exec.closed(p)
	return nil
}

func (p *fakeProc) received() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.signals)
}

// end finishes the process with st after writing out.
func (p *fakeProc) end(st domain.ProcState, out string) {
	p.mu.Lock()
	if p.gone {
		p.mu.Unlock()
		return
	}
	p.gone = true
	p.state = st
	p.mu.Unlock()
	go func() {
		if out != "" {
			_, _ = p.w.Write([]byte(out))
		}
		_ = p.w.Close()
	}()
}

func (p *fakeProc) exit(code int, out string) {
	p.end(domain.ProcState{Event: domain.ProcExited, Code: code}, out)
}

func (p *fakeProc) kill(sig os.Signal) {
	p.end(domain.ProcState{Event: domain.ProcSignaled, Signal: sig.(syscall.Signal)}, "")
}

// fakeExec records started processes and lets behave decide their fate.
type fakeExec struct {
	mu      sync.Mutex
	procs   []*fakeProc
	log     []string
	open    int
	maxOpen int
	failOn  string

	started chan *fakeProc
	behave  func(p *fakeProc)
}

func newFakeExec() *fakeExec {
	return &fakeExec{started: make(chan *fakeProc, 64)}
}

func (e *fakeExec) Start(_ context.Context, spec *domain.ProcSpec) (ports.Process, error) {
	if spec.Target == e.failOn {
		return nil, zerr.With(domain.ErrSpawnFailed, "target", spec.Target)
	}
	r, w := io.Pipe()
	e.mu.Lock()
	p := &fakeProc{exec: e, pid: 100 + len(e.procs), spec: spec, r: r, w: w, onSignal: killUnlessCont}
	e.procs = append(e.procs, p)
	e.open++
	e.maxOpen = max(e.maxOpen, e.open)
	e.log = append(e.log, "start "+spec.Target)
	e.mu.Unlock()

	if e.behave != nil {
		e.behave(p)
	}
	e.started <- p
	return p, nil
}

func (e *fakeExec) closed(p *fakeProc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open--
	e.log = append(e.log, "close "+p.spec.Target)
}

func (e *fakeExec) record(entry string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, entry)
}

func (e *fakeExec) targets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, p := range e.procs {
		out = append(out, p.spec.Target)
	}
	return out
}

func (e *fakeExec) events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.log)
}

func (e *fakeExec) proc(target string) *fakeProc {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.procs {
		if p.spec.Target == target {
			return p
		}
	}
	return nil
}

func killUnlessCont(p *fakeProc, sig os.Signal) {
	if sig != syscall.SIGCONT {
		p.kill(sig)
	}
}

// exitAfter finishes every process with code after d.
func exitAfter(d time.Duration, code int) func(*fakeProc) {
	return func(p *fakeProc) {
		go func() {
			time.Sleep(d)
			p.exit(code, "")
		}()
	}
}

// recorder is a Renderer that keeps everything it is told.
type recorder struct {
	mu       sync.Mutex
	messages []string
	lines    map[int][]string
	started  map[int]string
	results  map[int]error
}

func newRecorder() *recorder {
	return &recorder{
		lines:   make(map[int][]string),
		started: make(map[int]string),
		results: make(map[int]error),
	}
}

func (r *recorder) OnJobStart(id int, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[id] = target
}

func (r *recorder) OnJobLine(id int, line []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[id] = append(r.lines[id], string(line))
}

func (r *recorder) OnJobComplete(id int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = err
}

func (r *recorder) OnMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) Stop() error { return nil }

func (r *recorder) output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.messages, "\n")
}

// fakeDirs serves modification times from a map.
type fakeDirs struct {
	mtimes map[string]time.Time
}

func (d *fakeDirs) FindFile(name string, _ []string) (string, bool) {
	_, ok := d.mtimes[name]
	return name, ok
}

func (d *fakeDirs) Entries(string) map[string]struct{} { return nil }

func (d *fakeDirs) Mtime(path string) (time.Time, bool) {
	t, ok := d.mtimes[path]
	return t, ok
}

func (d *fakeDirs) Invalidate(string) {}

type nopResolver struct{}

func (nopResolver) Resolve(domain.Handle) error { return nil }

type passthrough struct{}

func (passthrough) Expand(raw string, _ domain.Scope) (string, error) { return raw, nil }
func (passthrough) HasWildcard(string) bool                           { return false }
func (passthrough) Glob(string, []string) ([]string, error)           { return nil, nil }

type harness struct {
	g        *domain.Graph
	suffixes *domain.SuffixTable
	exec     *fakeExec
	out      *recorder
	dirs     *fakeDirs
	inbox    *scheduler.Inbox
	raiser   *mocks.MockRaiser
	opts     domain.Options
	dir      string

	// resolve swaps the no-op resolver for a suffix resolver over suffixes.
	resolve bool
}

func newHarness(t *testing.T, opts domain.Options) *harness {
	t.Helper()
	return &harness{
		g:        domain.NewGraph(),
		suffixes: domain.NewSuffixTable(),
		exec:     newFakeExec(),
		out:      newRecorder(),
		dirs:     &fakeDirs{mtimes: make(map[string]time.Time)},
		inbox:    scheduler.NewInbox(),
		raiser:   mocks.NewMockRaiser(gomock.NewController(t)),
		opts:     opts,
	}
}

func (h *harness) scheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	ctrl := gomock.NewController(t)

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		}).AnyTimes()

	var resolver scheduler.Resolver = nopResolver{}
	if h.resolve {
		h.suffixes.Finalize(h.g)
		resolver = suffix.NewResolver(h.g, h.suffixes, h.dirs, passthrough{}, domain.MapScope{})
	}
	eval := oodate.NewEvaluator(h.g, h.suffixes, h.dirs, nil)
	return scheduler.NewScheduler(scheduler.Deps{
		Graph:     h.g,
		Resolver:  resolver,
		Evaluator: eval,
		Executor:  h.exec,
		Expander:  passthrough{},
		Renderer:  h.out,
		Logger:    logger,
		Tracer:    tracer,
		Raiser:    h.raiser,
		Inbox:     h.inbox,
		Globals:   domain.MapScope{},
		Dir:       h.dir,
	}, h.opts)
}

// leaf declares a node with commands and no sources.
func (h *harness) leaf(name string, cmds ...string) *domain.Node {
	n := h.g.FindOrCreate(name)
	if len(cmds) == 0 {
		cmds = []string{"build " + name}
	}
	n.Commands = cmds
	return n
}

func (h *harness) phony(name string, children ...*domain.Node) *domain.Node {
	n := h.g.FindOrCreate(name)
	n.Kind = domain.KindPhony
	for _, c := range children {
		h.g.Link(n.ID, c.ID)
	}
	return n
}
