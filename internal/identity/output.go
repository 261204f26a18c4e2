package identity

import (
	"fmt"
	"sort"
)

// Entry is one persisted assignment.
//
// Canonical names the SourceID whose digest ID carries; it equals Source for
// the owner of an identity. Superseded holds the sequence id Source carried
// before its group moved to another one, hashed with Source, or the zero value.
type Entry struct {
	Source     SourceID
	ID         AnonymizedID
	Canonical  SourceID
	Superseded AnonymizedID
}

// IsOwner reports whether the entry owns its identity rather than aliasing another.
func (e Entry) IsOwner() bool {
	return e.Canonical == e.Source
}

// Output maps SourceIDs to their anonymized ids. An Output is never modified
// after construction; Reconcile returns a new one.
type Output struct {
	entries map[SourceID]Entry
}

// EmptyOutput is the prior output of a first run.
func EmptyOutput() *Output {
	return &Output{entries: map[SourceID]Entry{}}
}

// NewOutput validates entries loaded from persistence and builds an Output.
// An empty Canonical defaults to the entry's own Source.
func NewOutput(entries []Entry) (*Output, error) {
	o := &Output{entries: make(map[SourceID]Entry, len(entries))}
	for _, e := range entries {
		if err := e.Source.Validate(); err != nil {
			return nil, err
		}
		if e.Canonical == "" {
			e.Canonical = e.Source
		} else if err := e.Canonical.Validate(); err != nil {
			return nil, err
		}
		if e.ID.Sequence() < 1 {
			return nil, fmt.Errorf("entry %s: sequence id must be positive, got %d", e.Source, e.ID.Sequence())
		}
		if !e.Superseded.IsZero() && e.Superseded.Sequence() < 1 {
			return nil, fmt.Errorf("entry %s: superseded sequence id must be positive", e.Source)
		}
		if _, dup := o.entries[e.Source]; dup {
			return nil, fmt.Errorf("duplicate entry for %s", e.Source)
		}
		o.entries[e.Source] = e
	}
	return o, nil
}

// Get returns the anonymized id assigned to id.
func (o *Output) Get(id SourceID) (AnonymizedID, bool) {
	e, ok := o.entries[id]
	return e.ID, ok
}

// Entry returns the full entry for id.
func (o *Output) Entry(id SourceID) (Entry, bool) {
	e, ok := o.entries[id]
	return e, ok
}

// Len returns the number of SourceIDs with an assignment.
func (o *Output) Len() int {
	return len(o.entries)
}

// Entries returns all entries ordered by SourceID.
func (o *Output) Entries() []Entry {
	out := make([]Entry, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// MaxSequence returns the highest sequence id present, current or superseded.
func (o *Output) MaxSequence() SequenceID {
	var max SequenceID
	for _, e := range o.entries {
		if e.ID.Sequence() > max {
			max = e.ID.Sequence()
		}
		if e.Superseded.Sequence() > max {
			max = e.Superseded.Sequence()
		}
	}
	return max
}

// Identities returns one AnonymizedID per distinct identity, ordered by sequence id.
func (o *Output) Identities() []AnonymizedID {
	seen := make(map[AnonymizedID]bool)
	var ids []AnonymizedID
	for _, e := range o.entries {
		if !seen[e.ID] {
			seen[e.ID] = true
			ids = append(ids, e.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Sequence() != ids[j].Sequence() {
			return ids[i].Sequence() < ids[j].Sequence()
		}
		return ids[i].Digest().String() < ids[j].Digest().String()
	})
	return ids
}

// SupersededAlias pairs an id a SourceID held on its own with the canonical
// id it now shares.
type SupersededAlias struct {
	Source    SourceID
	Old       AnonymizedID
	Canonical AnonymizedID
}

// SupersededAliases groups entries sharing an AnonymizedID and, inside every
// group of two or more, pairs each member that held another sequence id with
// the group's canonical entry. The result is derived on every call.
//
// Groups are keyed by the full id rather than the sequence id: after a group
// splits, two identities may carry one sequence id under different digests.
func (o *Output) SupersededAliases() []SupersededAlias {
	groups := make(map[AnonymizedID][]Entry)
	for _, e := range o.entries {
		groups[e.ID] = append(groups[e.ID], e)
	}

	var report []SupersededAlias
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		canonical, ok := groupOwner(members)
		if !ok {
			continue
		}
		for _, m := range members {
			if m.Source == canonical.Source || m.Superseded.IsZero() {
				continue
			}
			report = append(report, SupersededAlias{
				Source:    m.Source,
				Old:       m.Superseded,
				Canonical: canonical.ID,
			})
		}
	}

	sort.Slice(report, func(i, j int) bool {
		if report[i].Old.Sequence() != report[j].Old.Sequence() {
			return report[i].Old.Sequence() < report[j].Old.Sequence()
		}
		return report[i].Source < report[j].Source
	})
	return report
}

// groupOwner finds the member whose digest the rest of the group carries.
func groupOwner(members []Entry) (Entry, bool) {
	for _, m := range members {
		if m.IsOwner() {
			return m, true
		}
	}
	return Entry{}, false
}
