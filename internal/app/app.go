// Package app implements the application layer for mk.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.trai.ch/mk/internal/adapters/detector"
	"go.trai.ch/mk/internal/adapters/linear"
	"go.trai.ch/mk/internal/adapters/telemetry"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/engine"
	"go.trai.ch/mk/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// SettingsLoader layers the run options for a project directory.
type SettingsLoader interface {
	Load(dir string, flags *pflag.FlagSet) (domain.Options, error)
}

// Deps are the collaborators of an App.
type Deps struct {
	Settings SettingsLoader
	Decls    ports.DeclarationSource
	Dirs     ports.DirCache
	Archives ports.ArchiveReader
	Expander ports.Expander
	Executor ports.Executor
	Raiser   ports.Raiser
	Watcher  ports.Watcher
	Logger   ports.Logger
	Tracer   ports.Tracer
}

// App represents the main application logic.
type App struct {
	deps   Deps
	stdout io.Writer
}

// New creates a new App instance.
func New(deps Deps) *App {
	return &App{deps: deps, stdout: os.Stdout}
}

// WithOutput sends job output and messages to w instead of stdout.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// RunOptions configures one invocation.
type RunOptions struct {
	// File is the declaration file. Empty searches upward from the working
	// directory.
	File string
	// Flags carries command line overrides of the settings.
	Flags *pflag.FlagSet
	// Color is the --color value: auto, always or never.
	Color string
	// Trace logs a span for every job.
	Trace bool
}

// ConfigureLogging switches the logger to JSON records or debug level when
// it supports it.
func (a *App) ConfigureLogging(json, debug bool) {
	l, ok := a.deps.Logger.(interface {
		SetJSON(enable bool)
		SetDebug(enable bool)
	})
	if !ok {
		return
	}
	l.SetJSON(json)
	l.SetDebug(debug)
}

// Close releases the file watcher.
func (a *App) Close() error {
	if a.deps.Watcher == nil {
		return nil
	}
	return a.deps.Watcher.Close()
}

// invocation is what one command loaded before building.
type invocation struct {
	dir     string
	file    string
	decls   *domain.Declarations
	options domain.Options
}

// load reads the declarations, enters their directory and layers the
// settings found there. Every invocation starts from an empty directory
// cache.
func (a *App) load(opts RunOptions) (*invocation, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine working directory")
	}
	file := opts.File
	if file != "" && !filepath.IsAbs(file) {
		file = filepath.Join(cwd, file)
	}

	decls, err := a.deps.Decls.Load(cwd, file)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load declarations")
	}

	if p, ok := a.deps.Dirs.(purger); ok {
		p.Purge()
	}

	dir := cwd
	if decls.Dir != "" && decls.Dir != cwd {
		if err := os.Chdir(decls.Dir); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to enter project directory"), "dir", decls.Dir)
		}
		a.deps.Logger.Debug("entering directory " + decls.Dir)
		dir = decls.Dir
	}

	options, err := a.deps.Settings.Load(dir, opts.Flags)
	if err != nil {
		return nil, err
	}
	return &invocation{dir: dir, file: file, decls: decls, options: options}, nil
}

// renderer prints job output on a.stdout. Output of concurrent jobs is
// introduced by banners.
func (a *App) renderer(color string, options domain.Options) ports.Renderer {
	mode := detector.ResolveMode(detector.DetectEnvironment(), color)
	banners := options.Jobs > 1 && !options.Compat
	return linear.NewRenderer(a.stdout, mode == detector.ModeInteractive, banners)
}

// tracing returns the tracer for a run and the function that flushes it.
// Without --trace the injected tracer is used.
func (a *App) tracing(enabled bool) (ports.Tracer, func(context.Context)) {
	if !enabled {
		return a.deps.Tracer, func(context.Context) {}
	}
	provider := telemetry.NewProvider(telemetry.NewBridge(a.deps.Logger))
	otel.SetTracerProvider(provider.SDK())
	return provider.Tracer(), func(ctx context.Context) {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			a.deps.Logger.Warn("failed to flush traces: " + err.Error())
		}
	}
}

func (a *App) session(renderer ports.Renderer, tracer ports.Tracer, inbox *scheduler.Inbox, logger ports.Logger) *engine.Session {
	return engine.NewSession(engine.Deps{
		Dirs:     a.deps.Dirs,
		Archives: a.deps.Archives,
		Expander: a.deps.Expander,
		Executor: a.deps.Executor,
		Renderer: renderer,
		Logger:   logger,
		Tracer:   tracer,
		Raiser:   a.deps.Raiser,
		Inbox:    inbox,
	})
}

// Run builds targets, or the main target when none are named.
func (a *App) Run(ctx context.Context, targets []string, opts RunOptions) error {
	inv, err := a.load(opts)
	if err != nil {
		return err
	}

	renderer := a.renderer(opts.Color, inv.options)
	defer func() {
		_ = renderer.Stop()
	}()
	tracer, flush := a.tracing(opts.Trace)
	defer flush(ctx)

	inbox := scheduler.NewInbox()
	stop := inbox.Listen()
	defer stop()

	s := a.session(renderer, tracer, inbox, a.deps.Logger)
	s.Apply(inv.decls)
	return s.Run(ctx, targets, inv.options)
}
