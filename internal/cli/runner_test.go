package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmf-id-generator/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	samples := filepath.Join(dir, "samples.txt")
	require.NoError(t, os.WriteFile(samples, []byte("CPCT01990001T\nCPCT01990002T\n"), 0644))

	cfg := config.Default()
	cfg.Input.Samples = samples
	cfg.Store.File.Path = filepath.Join(dir, "mapping.json")
	return cfg
}

func runCLI(t *testing.T, cfg *config.Config) (string, error) {
	t.Helper()
	logger, err := NewLogger(config.LogConfig{Level: "error"}, io.Discard)
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), cfg, logger, &out)
	return out.String(), err
}

func TestRunGeneratesKeyOnEmptyMapping(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Complete!")
	assert.Contains(t, out, "Entries:    2 new, 0 updated, 0 unchanged")
	assert.Contains(t, out, "highest HMF000002")
	assert.Contains(t, out, "WARNING: Secret key was auto-generated!")

	// The mapping now holds ids, so a key is mandatory.
	_, err = runCLI(t, cfg)
	assert.Error(t, err)
}

func TestRunReportsSupersededIDs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secret = "a-long-secret-key"
	_, err := runCLI(t, cfg)
	require.NoError(t, err)

	aliases := filepath.Join(filepath.Dir(cfg.Input.Samples), "aliases.csv")
	require.NoError(t, os.WriteFile(aliases, []byte("CPCT01990001,CPCT01990002\n"), 0644))
	cfg.Input.Aliases = aliases

	out, err := runCLI(t, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Key:       a-long-s... (provided)")
	assert.Contains(t, out, "Superseded ids:\n  HMF000001 -> HMF000002")
	assert.NotContains(t, out, "auto-generated")
}

func TestRunDryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secret = "password"
	cfg.DryRun = true

	out, err := runCLI(t, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "[DRY RUN] Nothing was saved.")
	assert.NoFileExists(t, cfg.Store.File.Path)
}

func TestRunValidation(t *testing.T) {
	cfg := config.Default()
	_, err := runCLI(t, cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Input.Samples = ""
	cfg.Input.DicomFolder = filepath.Join(t.TempDir(), "missing")
	_, err = runCLI(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hello", "key", "value")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"key":"value"`)

	_, err = NewLogger(config.LogConfig{Level: "chatty"}, &buf)
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := newProgressBar(&buf, 10)
	pb.update(0, 0)
	assert.False(t, pb.drawn)

	pb.update(5, 10)
	assert.True(t, pb.drawn)
	assert.Contains(t, buf.String(), "[#####-----]  50%  (5/10)")
}
