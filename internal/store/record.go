package store

import (
	"fmt"

	"hmf-id-generator/internal/identity"
)

// record is the persisted form of one identity.Entry, shared by all backends.
type record struct {
	Source             string `json:"source"`
	Digest             string `json:"digest"`
	Sequence           int    `json:"sequence"`
	Canonical          string `json:"canonical,omitempty"`
	SupersededDigest   string `json:"superseded_digest,omitempty"`
	SupersededSequence int    `json:"superseded_sequence,omitempty"`
}

func toRecord(e identity.Entry) record {
	r := record{
		Source:   e.Source.String(),
		Digest:   e.ID.Digest().String(),
		Sequence: int(e.ID.Sequence()),
	}
	if !e.IsOwner() {
		r.Canonical = e.Canonical.String()
	}
	if !e.Superseded.IsZero() {
		r.SupersededDigest = e.Superseded.Digest().String()
		r.SupersededSequence = int(e.Superseded.Sequence())
	}
	return r
}

func (r record) entry() (identity.Entry, error) {
	d, err := identity.ParseDigest(r.Digest)
	if err != nil {
		return identity.Entry{}, fmt.Errorf("entry %s: %w", r.Source, err)
	}
	e := identity.Entry{
		Source:    identity.SourceID(r.Source),
		ID:        identity.NewAnonymizedID(d, identity.SequenceID(r.Sequence)),
		Canonical: identity.SourceID(r.Canonical),
	}
	if r.SupersededDigest != "" {
		sd, err := identity.ParseDigest(r.SupersededDigest)
		if err != nil {
			return identity.Entry{}, fmt.Errorf("entry %s: superseded: %w", r.Source, err)
		}
		e.Superseded = identity.NewAnonymizedID(sd, identity.SequenceID(r.SupersededSequence))
	}
	return e, nil
}

func toRecords(out *identity.Output) []record {
	entries := out.Entries()
	records := make([]record, len(entries))
	for i, e := range entries {
		records[i] = toRecord(e)
	}
	return records
}

func fromRecords(records []record) (*identity.Output, error) {
	entries := make([]identity.Entry, 0, len(records))
	for _, r := range records {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	out, err := identity.NewOutput(entries)
	if err != nil {
		return nil, fmt.Errorf("invalid stored output: %w", err)
	}
	return out, nil
}
