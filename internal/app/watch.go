package app

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync/atomic"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// purger is implemented by directory caches that can drop everything at
// once.
type purger interface {
	Purge()
}

// watchState is shared between the event forwarder and the build loop.
type watchState struct {
	inv      *invocation
	targets  []string
	opts     RunOptions
	renderer ports.Renderer
	tracer   ports.Tracer
	inbox    *scheduler.Inbox

	// outputs holds the absolute paths the last build wrote. Changes to
	// them alone do not start another build.
	outputs atomic.Pointer[map[string]struct{}]
}

// Watch builds targets and rebuilds them whenever a file below the project
// directory changes. Every build runs in a fresh session. Watch returns when
// ctx is done or an interrupt arrives between builds.
func (a *App) Watch(ctx context.Context, targets []string, opts RunOptions) error {
	if a.deps.Watcher == nil {
		return zerr.Wrap(domain.ErrWatchFailed, "no file watcher available")
	}
	inv, err := a.load(opts)
	if err != nil {
		return err
	}

	ws := &watchState{inv: inv, targets: targets, opts: opts}
	ws.renderer = a.renderer(opts.Color, inv.options)
	defer func() {
		_ = ws.renderer.Stop()
	}()
	var flush func(context.Context)
	ws.tracer, flush = a.tracing(opts.Trace)
	defer flush(ctx)

	ws.inbox = scheduler.NewInbox()
	stop := ws.inbox.Listen()
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	batches, err := a.deps.Watcher.Watch(ctx, inv.dir)
	if err != nil {
		return err
	}

	rebuild := make(chan struct{}, 1)
	rebuild <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rebuild)
		for batch := range batches {
			if !ws.triggers(batch) {
				continue
			}
			select {
			case rebuild <- struct{}{}:
			default:
			}
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-ws.inbox.C():
				if slices.Contains(scheduler.InterruptSignals, sig) {
					a.deps.Raiser.Raise(sig)
					return domain.ErrInterrupted
				}
			case _, ok := <-rebuild:
				if !ok {
					return nil
				}
				a.rebuild(gctx, ws)
				a.deps.Logger.Info("watching for changes")
			}
		}
	})
	return g.Wait()
}

// rebuild reads the declarations again and builds them in a new session.
// Failures are logged; the watch goes on.
func (a *App) rebuild(ctx context.Context, ws *watchState) {
	if p, ok := a.deps.Dirs.(purger); ok {
		p.Purge()
	}

	decls, err := a.deps.Decls.Load(ws.inv.dir, ws.inv.file)
	if err != nil {
		a.deps.Logger.Error(zerr.Wrap(err, "failed to load declarations"))
		return
	}

	s := a.session(ws.renderer, ws.tracer, ws.inbox, a.deps.Logger)
	s.Apply(decls)
	err = s.Run(ctx, ws.targets, ws.inv.options)
	switch {
	case err == nil, errors.Is(err, domain.ErrBuildFailed), errors.Is(err, context.Canceled):
	default:
		a.deps.Logger.Error(err)
	}

	outputs := make(map[string]struct{})
	for n := range s.Graph().All() {
		if n.Status == domain.StatusMade && n.IsFile() {
			outputs[ws.abs(n.File())] = struct{}{}
		}
	}
	ws.outputs.Store(&outputs)
}

// triggers reports whether batch holds a change the last build did not
// make itself.
func (ws *watchState) triggers(batch []string) bool {
	var outputs map[string]struct{}
	if p := ws.outputs.Load(); p != nil {
		outputs = *p
	}
	for _, path := range batch {
		if _, ok := outputs[ws.abs(path)]; !ok {
			return true
		}
	}
	return false
}

func (ws *watchState) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ws.inv.dir, path)
}
