// Package settings layers the run options of mk from defaults, an optional
// .mkrc.yaml, MK_* environment variables and command line flags, in rising
// order of precedence.
package settings

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// Keys that flags may set. Flags outside this set, such as -f or -C, are
// never treated as settings.
var keys = map[string]struct{}{
	"jobs":          {},
	"max_local":     {},
	"keep_going":    {},
	"dry_run":       {},
	"touch":         {},
	"query":         {},
	"silent":        {},
	"ignore_errors": {},
	"compat":        {},
	"pty":           {},
	"shell":         {},
	"poll_interval": {},
}

// Defaults returns the lowest settings layer.
func Defaults() map[string]any {
	return map[string]any{
		"jobs":          runtime.NumCPU(),
		"shell":         domain.DefaultShell,
		"poll_interval": domain.DefaultPollInterval.String(),
	}
}

// Loader reads domain.Options.
type Loader struct{}

// NewLoader creates a Loader over the process environment.
func NewLoader() *Loader {
	return &Loader{}
}

// Load returns the options in effect for a build in dir. flags may be nil;
// only flags changed on the command line take part.
func (l *Loader) Load(dir string, flags *pflag.FlagSet) (domain.Options, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return domain.Options{}, loadError(err, "defaults")
	}

	path := filepath.Join(dir, domain.SettingsFileName)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return domain.Options{}, zerr.With(loadError(err, "file"), "file", path)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.Options{}, zerr.With(loadError(err, "file"), "file", path)
	}

	if err := k.Load(envProvider(), nil); err != nil {
		return domain.Options{}, loadError(err, "env")
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := keys[key]; !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return domain.Options{}, loadError(err, "flags")
		}
	}

	var opts domain.Options
	if err := k.Unmarshal("", &opts); err != nil {
		return domain.Options{}, loadError(err, "decode")
	}
	return opts.Normalize(), nil
}

// envProvider maps MK_KEEP_GOING to keep_going. MK_ENV sets a single job
// environment entry.
func envProvider() *env.Env {
	return env.Provider(domain.EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, domain.EnvPrefix))
	})
}

func loadError(err error, layer string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrSettingsLoadFailed.Error()), "layer", layer)
}
