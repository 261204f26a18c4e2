package identity

import "fmt"

// LabelPrefix starts every human readable anonymized id.
const LabelPrefix = "HMF"

// SequenceID is the permanent slot number of an identity. Valid ids start at 1.
type SequenceID int

// AnonymizedID pairs a digest with a sequence id. It is immutable; a change
// of identity is always expressed by replacing an Output entry.
type AnonymizedID struct {
	digest   Digest
	sequence SequenceID
}

// NewAnonymizedID builds an AnonymizedID from its parts.
func NewAnonymizedID(d Digest, seq SequenceID) AnonymizedID {
	return AnonymizedID{digest: d, sequence: seq}
}

func (a AnonymizedID) Digest() Digest {
	return a.digest
}

func (a AnonymizedID) Sequence() SequenceID {
	return a.sequence
}

// Label returns the plaintext id handed to downstream consumers, e.g. HMF000042.
func (a AnonymizedID) Label() string {
	return fmt.Sprintf("%s%06d", LabelPrefix, a.sequence)
}

// IsZero reports whether a was never assigned.
func (a AnonymizedID) IsZero() bool {
	return a == AnonymizedID{}
}

func (a AnonymizedID) String() string {
	return fmt.Sprintf("%s(%s)", a.Label(), a.digest)
}
