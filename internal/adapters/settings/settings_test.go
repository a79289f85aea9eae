package settings_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/adapters/settings"
	"go.trai.ch/mk/internal/core/domain"
)

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("mk", pflag.ContinueOnError)
	fs.IntP("jobs", "j", 0, "")
	fs.BoolP("keep-going", "k", false, "")
	fs.BoolP("dry-run", "n", false, "")
	fs.String("shell", "", "")
	fs.StringP("file", "f", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := settings.NewLoader().Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), opts.Jobs)
	assert.Equal(t, opts.Jobs, opts.MaxLocal)
	assert.Equal(t, domain.DefaultShell, opts.Shell)
	assert.Equal(t, domain.DefaultPollInterval, opts.PollInterval)
	assert.False(t, opts.KeepGoing)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.SettingsFileName), []byte(`
jobs: 2
keep_going: true
shell: /bin/bash
poll_interval: 10ms
env: [CC=clang]
`), domain.FilePerm))

	t.Run("file", func(t *testing.T) {
		opts, err := settings.NewLoader().Load(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, opts.Jobs)
		assert.True(t, opts.KeepGoing)
		assert.Equal(t, "/bin/bash", opts.Shell)
		assert.Equal(t, 10*time.Millisecond, opts.PollInterval)
		assert.Equal(t, []string{"CC=clang"}, opts.Env)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("MK_JOBS", "6")
		t.Setenv("MK_DRY_RUN", "true")
		opts, err := settings.NewLoader().Load(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, 6, opts.Jobs)
		assert.True(t, opts.DryRun)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("MK_JOBS", "6")
		opts, err := settings.NewLoader().Load(dir, flagSet(t, "-j", "8", "-f", "other.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 8, opts.Jobs)
		assert.Equal(t, "/bin/bash", opts.Shell, "unchanged flags do not override")
	})
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.SettingsFileName), []byte("jobs: [\n"), domain.FilePerm))

	_, err := settings.NewLoader().Load(dir, nil)

	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrSettingsLoadFailed.Error())
}
