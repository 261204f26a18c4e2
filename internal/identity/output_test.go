package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutput(t *testing.T) {
	d1 := mustHash(t, password1, patient1)
	d2 := mustHash(t, password1, patient2)

	out, err := NewOutput([]Entry{
		{Source: patient2, ID: NewAnonymizedID(d2, 2)},
		{Source: patient1, ID: NewAnonymizedID(d2, 2), Canonical: patient2, Superseded: NewAnonymizedID(d1, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len())
	entries := out.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, patient1, entries[0].Source)
	assert.Equal(t, patient2, entries[1].Canonical, "empty canonical defaults to the source")
	assert.True(t, entries[1].IsOwner())
	assert.False(t, entries[0].IsOwner())
	assert.Equal(t, SequenceID(2), out.MaxSequence())
	assert.Equal(t, []AnonymizedID{NewAnonymizedID(d2, 2)}, out.Identities())
}

func TestNewOutputRejectsBadEntries(t *testing.T) {
	d := mustHash(t, password1, patient1)

	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty source", []Entry{{Source: "", ID: NewAnonymizedID(d, 1)}}},
		{"bad canonical", []Entry{{Source: patient1, ID: NewAnonymizedID(d, 1), Canonical: "a b"}}},
		{"zero sequence", []Entry{{Source: patient1, ID: NewAnonymizedID(d, 0)}}},
		{"negative superseded", []Entry{{Source: patient1, ID: NewAnonymizedID(d, 1), Superseded: NewAnonymizedID(d, -1)}}},
		{"duplicate", []Entry{
			{Source: patient1, ID: NewAnonymizedID(d, 1)},
			{Source: patient1, ID: NewAnonymizedID(d, 2)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOutput(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestOutputMaxSequenceCountsSuperseded(t *testing.T) {
	d := mustHash(t, password1, patient1)
	out, err := NewOutput([]Entry{
		{Source: patient2, ID: NewAnonymizedID(d, 1)},
		{Source: patient1, ID: NewAnonymizedID(d, 1), Canonical: patient2, Superseded: NewAnonymizedID(d, 4)},
	})
	require.NoError(t, err)

	assert.Equal(t, SequenceID(4), out.MaxSequence())
	assert.Equal(t, SequenceID(0), EmptyOutput().MaxSequence())
}

func TestSupersededAliasesIgnoresPlainAliases(t *testing.T) {
	d2 := mustHash(t, password1, patient2)
	out, err := NewOutput([]Entry{
		{Source: patient2, ID: NewAnonymizedID(d2, 1)},
		{Source: patient1, ID: NewAnonymizedID(d2, 1), Canonical: patient2},
	})
	require.NoError(t, err)

	assert.Empty(t, out.SupersededAliases())
}

func TestOutputGetMissing(t *testing.T) {
	out := EmptyOutput()
	_, ok := out.Get(patient1)
	assert.False(t, ok)
	_, ok = out.Entry(patient1)
	assert.False(t, ok)
	assert.Empty(t, out.Entries())
}
