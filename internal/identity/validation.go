package identity

import (
	"sort"
	"strings"
	"unicode"
)

// SourceID is a plaintext patient identifier from the source system.
type SourceID string

// NewSourceID validates s and returns it as a SourceID.
func NewSourceID(s string) (SourceID, error) {
	id := SourceID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate rejects empty identifiers and identifiers with surrounding or
// embedded whitespace.
func (id SourceID) Validate() error {
	s := string(id)
	if strings.TrimSpace(s) == "" {
		return &InvalidIdentifierError{Value: s, Reason: "empty"}
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return &InvalidIdentifierError{Value: s, Reason: "contains whitespace"}
	}
	return nil
}

func (id SourceID) String() string {
	return string(id)
}

// AliasMap declares that key and value denote the same physical patient,
// with value as the canonical identity.
type AliasMap map[SourceID]SourceID

// keys returns the alias keys in lexicographic order.
func (m AliasMap) keys() []SourceID {
	keys := make([]SourceID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Batch is the input of one run: patient ids owning samples, in the order
// they were seen, plus the declared aliases.
type Batch struct {
	Patients []SourceID
	Aliases  AliasMap
}

// NewBatch copies patients and aliases so later mutation by the caller does
// not leak into a run.
func NewBatch(patients []SourceID, aliases AliasMap) Batch {
	b := Batch{
		Patients: append([]SourceID(nil), patients...),
		Aliases:  make(AliasMap, len(aliases)),
	}
	for k, v := range aliases {
		b.Aliases[k] = v
	}
	return b
}

// Validate checks every identifier in the batch.
func (b Batch) Validate() error {
	for _, id := range b.Patients {
		if err := id.Validate(); err != nil {
			return err
		}
	}
	for _, k := range b.Aliases.keys() {
		if err := k.Validate(); err != nil {
			return err
		}
		if err := b.Aliases[k].Validate(); err != nil {
			return err
		}
	}
	return nil
}
