package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	d1, err := Hash("password", "CPCT01990001")
	require.NoError(t, err)

	again, err := Hash("password", "CPCT01990001")
	require.NoError(t, err)
	assert.Equal(t, d1, again, "same input must reproduce the digest")

	otherKey, err := Hash("password_2", "CPCT01990001")
	require.NoError(t, err)
	assert.NotEqual(t, d1, otherKey)

	otherID, err := Hash("password", "CPCT01990002")
	require.NoError(t, err)
	assert.NotEqual(t, d1, otherID)

	assert.Len(t, d1.String(), 64)
	assert.NotContains(t, d1.String(), "CPCT01990001")
}

func TestHashRejectsEmptySecret(t *testing.T) {
	for _, secret := range []string{"", "   ", "\t\n"} {
		_, err := Hash(secret, "CPCT01990001")
		assert.ErrorIs(t, err, ErrInvalidKey, "secret %q", secret)
	}
}

func TestDigestText(t *testing.T) {
	d, err := Hash("password", "CPCT01990001")
	require.NoError(t, err)

	text, err := d.MarshalText()
	require.NoError(t, err)

	var parsed Digest
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("zz")
	assert.Error(t, err)
	_, err = ParseDigest("abcd")
	assert.Error(t, err)
}

func TestNewSourceID(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"CPCT01990001", false},
		{"a", false},
		{"", true},
		{"   ", true},
		{" CPCT01990001", true},
		{"CPCT 01990001", true},
	}

	for _, tt := range tests {
		id, err := NewSourceID(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidIdentifier, "input %q", tt.in)
			var invalid *InvalidIdentifierError
			assert.ErrorAs(t, err, &invalid)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, SourceID(tt.in), id)
	}
}

func TestAnonymizedIDLabel(t *testing.T) {
	d, err := Hash("password", "CPCT01990001")
	require.NoError(t, err)

	id := NewAnonymizedID(d, 42)
	assert.Equal(t, "HMF000042", id.Label())
	assert.Equal(t, SequenceID(42), id.Sequence())
	assert.Equal(t, d, id.Digest())
	assert.Equal(t, NewAnonymizedID(d, 42), id)
	assert.NotEqual(t, NewAnonymizedID(d, 43), id)
	assert.False(t, id.IsZero())
	assert.True(t, AnonymizedID{}.IsZero())
}
