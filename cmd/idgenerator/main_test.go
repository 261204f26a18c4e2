package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmf-id-generator/internal/config"
)

func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	fs, o := newFlagSet()
	require.NoError(t, fs.Parse(args))
	return loadConfig(fs, o)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRecursiveFlagOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, "input:\n  samples: samples.txt\n  recursive: false\n")

	got, err := parse(t, "-c", path)
	require.NoError(t, err)
	assert.False(t, got.Input.Recursive, "untouched flag keeps the file value")

	got, err = parse(t, "-c", path, "-r")
	require.NoError(t, err)
	assert.True(t, got.Input.Recursive)

	got, err = parse(t, "-c", path, "--recursive=true")
	require.NoError(t, err)
	assert.True(t, got.Input.Recursive)
}

func TestRecursiveFlagCanDisable(t *testing.T) {
	got, err := parse(t, "-s", "samples.txt", "-r=false")
	require.NoError(t, err)
	assert.False(t, got.Input.Recursive)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "secret: from-file\ninput:\n  samples: a.txt\nstore:\n  file:\n    path: file.json\n")

	got, err := parse(t, "--config", path, "-k", "from-flag", "--samples", "b.txt", "-n")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", got.Secret)
	assert.Equal(t, "b.txt", got.Input.Samples)
	assert.Equal(t, "file.json", got.Store.File.Path)
	assert.True(t, got.DryRun)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("IDGEN_SECRET", "from-env")
	t.Setenv("IDGEN_RECURSIVE", "false")

	got, err := parse(t, "-s", "samples.txt")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got.Secret)
	assert.False(t, got.Input.Recursive)

	got, err = parse(t, "-s", "samples.txt", "-recursive")
	require.NoError(t, err)
	assert.True(t, got.Input.Recursive)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := parse(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
