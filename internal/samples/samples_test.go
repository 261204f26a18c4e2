package samples

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmf-id-generator/internal/identity"
)

func TestParsePatientID(t *testing.T) {
	tests := []struct {
		in   string
		want identity.SourceID
	}{
		{"CPCT01990001T", "CPCT01990001"},
		{"CPCT01990001TII", "CPCT01990001"},
		{"CPCT01990001R", "CPCT01990001"},
		{"DRUP01010001TIV", "DRUP01010001"},
		{"CPCT01990002", "CPCT01990002"},
		{"  WIDE01010001T ", "WIDE01010001"},
	}
	for _, tt := range tests {
		got, err := ParsePatientID(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "CPCT0199", "cpct01990001T", "CPCT01990001X", "CPCT01990001 T"} {
		_, err := ParsePatientID(bad)
		assert.ErrorIs(t, err, identity.ErrInvalidIdentifier, "input %q", bad)
	}
}

func TestReadSamples(t *testing.T) {
	input := `# run 42
CPCT01990001T
CPCT01990002T

CPCT01990001TII
CPCT01990003R
`
	patients, count, err := ReadSamples(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, []identity.SourceID{"CPCT01990001", "CPCT01990002", "CPCT01990003"}, patients)
}

func TestReadSamplesReportsLine(t *testing.T) {
	_, _, err := ReadSamples(strings.NewReader("CPCT01990001T\nnot-a-sample\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.ErrorIs(t, err, identity.ErrInvalidIdentifier)
}

func TestReadAliases(t *testing.T) {
	input := `patient,canonical
CPCT01990001,CPCT01990002
# retired
DRUP01010001T, CPCT01990003
`
	aliases, err := ReadAliases(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, identity.AliasMap{
		"CPCT01990001": "CPCT01990002",
		"DRUP01010001": "CPCT01990003",
	}, aliases)
}

func TestReadAliasesRejectsConflicts(t *testing.T) {
	input := "CPCT01990001,CPCT01990002\nCPCT01990001,CPCT01990003\n"
	_, err := ReadAliases(strings.NewReader(input))
	assert.Error(t, err)

	_, err = ReadAliases(strings.NewReader("CPCT01990001,CPCT01990002,extra\n"))
	assert.Error(t, err)

	_, err = ReadAliases(strings.NewReader("CPCT01990001,CPCT01990002\nbad,CPCT01990003\n"))
	assert.ErrorIs(t, err, identity.ErrInvalidIdentifier)
}

func TestLoadBatch(t *testing.T) {
	dir := t.TempDir()
	samplesPath := filepath.Join(dir, "samples.txt")
	aliasesPath := filepath.Join(dir, "aliases.csv")
	require.NoError(t, os.WriteFile(samplesPath, []byte("CPCT01990001T\nCPCT01990002T\n"), 0644))
	require.NoError(t, os.WriteFile(aliasesPath, []byte("CPCT01990001,CPCT01990002\n"), 0644))

	src, err := LoadBatch(samplesPath, aliasesPath)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Samples)

	batch, err := src.Batch()
	require.NoError(t, err)
	assert.Equal(t, []identity.SourceID{"CPCT01990001", "CPCT01990002"}, batch.Patients)
	assert.Equal(t, identity.SourceID("CPCT01990002"), batch.Aliases["CPCT01990001"])

	src, err = LoadBatch(samplesPath, "")
	require.NoError(t, err)
	assert.Empty(t, src.Aliases)

	_, err = LoadBatch(filepath.Join(dir, "missing.txt"), "")
	assert.Error(t, err)
}
