// Package commands implements the CLI commands for the mk build tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.trai.ch/mk/internal/adapters/report"
	"go.trai.ch/mk/internal/app"
	"go.trai.ch/mk/internal/build"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for mk.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, targets []string, opts app.RunOptions) error
	Watch(ctx context.Context, targets []string, opts app.RunOptions) error
	Targets(ctx context.Context, opts app.RunOptions) ([]report.Row, error)
	ConfigureLogging(json, debug bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "mk",
		Short:         "A dependency-driven build engine with suffix rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	addGlobalFlags(rootCmd)

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRunE = c.setup

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newTargetsCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// addGlobalFlags declares the flags every command shares. Flags named after
// a setting override .mkrc.yaml and MK_* variables when given.
func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringP("file", "f", "", "Read declarations from `path` instead of searching for "+domain.DeclFileName)
	f.StringP("directory", "C", "", "Change to `dir` before doing anything")
	f.String("color", "auto", "Color output: auto, always or never")
	f.Bool("log-json", false, "Write log records as JSON")
	f.Bool("debug", false, "Enable debug logging")
	f.Bool("trace", false, "Log a timing span for every job")

	f.IntP("jobs", "j", runtime.NumCPU(), "Run at most `n` jobs at once")
	f.Int("max-local", 0, "Run at most `n` jobs on this host (default: --jobs)")
	f.BoolP("keep-going", "k", false, "Continue with independent targets after an error")
	f.BoolP("dry-run", "n", false, "Print commands instead of running them")
	f.BoolP("touch", "t", false, "Touch targets instead of running their commands")
	f.BoolP("query", "q", false, "Run nothing; exit 1 when anything is out of date")
	f.BoolP("silent", "s", false, "Do not echo commands")
	f.BoolP("ignore-errors", "i", false, "Ignore nonzero exits of commands")
	f.BoolP("compat", "B", false, "Run one shell per command")
	f.Bool("pty", false, "Run jobs on a pseudo terminal")
	f.String("shell", domain.DefaultShell, "Shell that runs job scripts")
	f.Duration("poll-interval", domain.DefaultPollInterval, "Longest wait before jobs are reaped again")
}

func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if dir, _ := cmd.Flags().GetString("directory"); dir != "" {
		if err := os.Chdir(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to change directory"), "dir", dir)
		}
	}
	jsonLogs, _ := cmd.Flags().GetBool("log-json")
	debug, _ := cmd.Flags().GetBool("debug")
	c.app.ConfigureLogging(jsonLogs, debug)
	return nil
}

// runOptions collects the app options from the flags of cmd.
func runOptions(cmd *cobra.Command) app.RunOptions {
	file, _ := cmd.Flags().GetString("file")
	color, _ := cmd.Flags().GetString("color")
	trace, _ := cmd.Flags().GetBool("trace")
	return app.RunOptions{
		File:  file,
		Flags: cmd.Flags(),
		Color: color,
		Trace: trace,
	}
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
