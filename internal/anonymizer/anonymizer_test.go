package anonymizer

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmf-id-generator/internal/identity"
	"hmf-id-generator/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	dir   string
	store *store.FileStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(store.FileConfig{Path: filepath.Join(dir, "mapping.json")})
	require.NoError(t, err)
	return &fixture{dir: dir, store: st}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) run(t *testing.T, cfg Config) *Result {
	t.Helper()
	res, err := Run(context.Background(), cfg, f.store, discardLogger())
	require.NoError(t, err)
	return res
}

func TestRunSampleList(t *testing.T) {
	f := newFixture(t)
	samplesFile := f.write(t, "samples.txt", "CPCT01990001T\nCPCT01990002T\nCPCT01990001TII\n")

	res := f.run(t, Config{SamplesFile: samplesFile, Secret: "password"})

	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.GeneratedSecret)
	assert.Equal(t, 3, res.Stats.Samples)
	assert.Equal(t, 2, res.Stats.Patients)
	assert.Equal(t, 2, res.Stats.NewEntries)
	assert.Equal(t, 2, res.Stats.Identities)

	saved, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Output.Entries(), saved.Entries())
}

func TestRunAliasCollapse(t *testing.T) {
	f := newFixture(t)
	samplesFile := f.write(t, "samples.txt", "CPCT01990001T\nCPCT01990002T\n")
	f.run(t, Config{SamplesFile: samplesFile, Secret: "password"})

	aliasesFile := f.write(t, "aliases.csv", "patient,canonical\nCPCT01990001,CPCT01990002\n")
	exportFile := filepath.Join(f.dir, "share", "ids.csv")
	res := f.run(t, Config{SamplesFile: samplesFile, AliasesFile: aliasesFile, Secret: "password", ExportFile: exportFile})

	assert.Equal(t, 1, res.Stats.Aliases)
	assert.Equal(t, 1, res.Stats.UpdatedEntries)
	assert.Equal(t, 1, res.Stats.CarriedEntries)
	assert.Equal(t, 1, res.Stats.Identities)
	require.Len(t, res.Superseded, 1)
	assert.Equal(t, "HMF000001", res.Superseded[0].Old.Label())
	assert.Equal(t, "HMF000002", res.Superseded[0].Canonical.Label())

	rows := readCSV(t, exportFile)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"hmf_id", "sequence", "digest"}, rows[0])
	assert.Equal(t, "HMF000002", rows[1][0])

	superseded := readCSV(t, filepath.Join(f.dir, "share", "ids.superseded.csv"))
	require.Len(t, superseded, 2)
	assert.Equal(t, "HMF000001", superseded[1][0])
	assert.Equal(t, "HMF000002", superseded[1][2])
}

func TestRunDryRunSavesNothing(t *testing.T) {
	f := newFixture(t)
	samplesFile := f.write(t, "samples.txt", "CPCT01990001T\n")
	exportFile := filepath.Join(f.dir, "ids.csv")

	res := f.run(t, Config{SamplesFile: samplesFile, Secret: "password", DryRun: true, ExportFile: exportFile})
	assert.Equal(t, 1, res.Output.Len())

	saved, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Len())
	assert.NoFileExists(t, exportFile)
}

func TestRunSecretHandling(t *testing.T) {
	f := newFixture(t)
	samplesFile := f.write(t, "samples.txt", "CPCT01990001T\n")

	res := f.run(t, Config{SamplesFile: samplesFile})
	require.Len(t, res.GeneratedSecret, 32)

	_, err := Run(context.Background(), Config{SamplesFile: samplesFile}, f.store, discardLogger())
	assert.ErrorIs(t, err, ErrSecretRequired)

	again := f.run(t, Config{SamplesFile: samplesFile, Secret: res.GeneratedSecret})
	assert.Equal(t, res.Output.Entries(), again.Output.Entries())
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)
	samplesFile := f.write(t, "samples.txt", "CPCT01990001T\n")
	cyclic := f.write(t, "aliases.csv", "CPCT01990001,CPCT01990002\nCPCT01990002,CPCT01990001\n")

	_, err := Run(context.Background(), Config{SamplesFile: samplesFile, AliasesFile: cyclic, Secret: "password"}, f.store, discardLogger())
	assert.ErrorIs(t, err, identity.ErrAliasCycle)

	saved, loadErr := f.store.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, 0, saved.Len(), "a failed run must not persist anything")

	_, err = Run(context.Background(), Config{Secret: "password"}, f.store, discardLogger())
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{SamplesFile: samplesFile, DicomFolder: f.dir, Secret: "password"}, f.store, discardLogger())
	assert.Error(t, err)
}

func TestRunEmptyDicomFolder(t *testing.T) {
	f := newFixture(t)
	scans := filepath.Join(f.dir, "scans")
	require.NoError(t, os.MkdirAll(scans, 0755))

	res := f.run(t, Config{DicomFolder: scans, Recursive: true, Secret: "password"})
	assert.Equal(t, 0, res.Stats.Files)
	assert.Equal(t, 0, res.Output.Len())
}

func TestExportPublicOmitsSourceIDs(t *testing.T) {
	out, err := identity.Reconcile("password",
		identity.NewBatch([]identity.SourceID{"CPCT01990001", "CPCT01990002"}, nil), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportPublic(&buf, out))
	assert.NotContains(t, buf.String(), "CPCT")
	assert.Contains(t, buf.String(), "HMF000001,1,")
	assert.Contains(t, buf.String(), "HMF000002,2,")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
