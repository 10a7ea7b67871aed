package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o := Default()
	assert.Equal(t, 23, o.ExitCode, "default exit code matches the sanitizer default")
	assert.Equal(t, 16, o.MaxStackDepth)
	assert.Equal(t, 256<<10, o.BootstrapArenaSize)
	assert.Zero(t, o.Verbosity)
}

func TestParse(t *testing.T) {
	o, err := Parse(Default(), "exitcode=42, verbosity=2 ,log_threads=true")
	require.NoError(t, err)
	assert.Equal(t, 42, o.ExitCode)
	assert.Equal(t, 2, o.Verbosity)
	assert.True(t, o.LogThreads)
	// Untouched keys keep their defaults.
	assert.Equal(t, 16, o.MaxStackDepth)
}

func TestParseEmptyFields(t *testing.T) {
	o, err := Parse(Default(), ",,exitcode=5,")
	require.NoError(t, err)
	assert.Equal(t, 5, o.ExitCode)
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := Parse(Default(), "exit_code=1")
	require.Error(t, err, "typos must refuse startup, not silently no-op")
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"exitcode", "exitcode=x", "exitcode=-1", "log_threads=maybe"} {
		_, err := Parse(Default(), s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leak.toml")
	require.NoError(t, os.WriteFile(path, []byte("exitcode = 99\nlog_threads = true\n"), 0o644))

	base, err := Parse(Default(), "exitcode=42,verbosity=3")
	require.NoError(t, err)

	o, err := LoadFile(base, path)
	require.NoError(t, err)
	assert.Equal(t, 99, o.ExitCode, "file overrides env")
	assert.True(t, o.LogThreads)
	assert.Equal(t, 3, o.Verbosity, "fields absent from the file survive")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(Default(), filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvOptions, "exitcode=7")
	t.Setenv(EnvConfig, "")
	o, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, o.ExitCode)
}

func TestLoadBadEnvironment(t *testing.T) {
	t.Setenv(EnvOptions, "nope=1")
	_, err := Load()
	require.Error(t, err)
}
