package identity

// Reconcile derives the next Output from the current batch and the previous
// run's Output. prior may be nil for a first run and is never modified.
//
// Every SourceID touched by the batch (sample owners, alias keys and values,
// and prior aliases of a touched identity) is rehashed with secret. All other
// prior entries are carried forward unchanged. Validation and alias
// resolution complete before any digest is computed, so an error never comes
// with a partial Output.
func Reconcile(secret string, batch Batch, prior *Output) (*Output, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}
	if prior == nil {
		prior = EmptyOutput()
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	r := newResolver(effectiveLinks(batch, prior))
	order, err := touched(batch, prior, r)
	if err != nil {
		return nil, err
	}
	groups := groupByCanonical(order, r)

	entries := make(map[SourceID]Entry, prior.Len()+len(order))
	for id, e := range prior.entries {
		entries[id] = e
	}

	next := prior.MaxSequence() + 1
	for _, g := range groups {
		seq, claimed := g.claim(prior, r)
		if !claimed {
			seq = next
			next++
		}
		id := NewAnonymizedID(digest(secret, g.canonical), seq)
		for _, member := range g.members {
			entries[member] = memberEntry(secret, member, g.canonical, id, prior)
		}
	}

	return &Output{entries: entries}, nil
}

// effectiveLinks merges the aliasing recorded in prior with the batch's
// declarations. A SourceID named anywhere in the batch alias map loses its
// recorded link, so a batch can redirect or reverse an earlier declaration.
func effectiveLinks(batch Batch, prior *Output) map[SourceID]SourceID {
	declared := make(map[SourceID]bool, 2*len(batch.Aliases))
	for k, v := range batch.Aliases {
		declared[k] = true
		declared[v] = true
	}

	links := make(map[SourceID]SourceID)
	for id, e := range prior.entries {
		if !e.IsOwner() && !declared[id] {
			links[id] = e.Canonical
		}
	}
	for k, v := range batch.Aliases {
		if k != v {
			links[k] = v
		}
	}
	return links
}

type resolution struct {
	canonical SourceID
	depth     int // alias hops from the id to its canonical
}

type resolver struct {
	links map[SourceID]SourceID
	memo  map[SourceID]resolution
}

func newResolver(links map[SourceID]SourceID) *resolver {
	return &resolver{links: links, memo: make(map[SourceID]resolution)}
}

// resolve follows alias links to the end of the chain. The visited set turns
// a loop into an AliasCycleError instead of non-termination.
func (r *resolver) resolve(id SourceID) (resolution, error) {
	if res, ok := r.memo[id]; ok {
		return res, nil
	}

	chain := []SourceID{id}
	seen := map[SourceID]bool{id: true}
	for cur := id; ; {
		next, ok := r.links[cur]
		if !ok {
			break
		}
		if seen[next] {
			return resolution{}, &AliasCycleError{Chain: append(chain, next)}
		}
		seen[next] = true
		chain = append(chain, next)
		cur = next
	}

	canonical := chain[len(chain)-1]
	for i, member := range chain {
		r.memo[member] = resolution{canonical: canonical, depth: len(chain) - 1 - i}
	}
	return r.memo[id], nil
}

// chain lists id and every node up to its canonical. id must resolve.
func (r *resolver) chain(id SourceID) []SourceID {
	nodes := []SourceID{id}
	for cur := id; ; {
		next, ok := r.links[cur]
		if !ok {
			return nodes
		}
		nodes = append(nodes, next)
		cur = next
	}
}

// touched returns every SourceID the run must (re)assign, in first-occurrence
// order: batch patients, then alias pairs by key, then chain nodes as they are
// reached, then prior entries linked into a touched identity by SourceID.
func touched(batch Batch, prior *Output, r *resolver) ([]SourceID, error) {
	var order []SourceID
	index := make(map[SourceID]bool)
	canonicals := make(map[SourceID]bool)

	touch := func(id SourceID) error {
		if index[id] {
			return nil
		}
		res, err := r.resolve(id)
		if err != nil {
			return err
		}
		canonicals[res.canonical] = true
		for _, node := range r.chain(id) {
			if !index[node] {
				index[node] = true
				order = append(order, node)
			}
		}
		return nil
	}

	for _, id := range batch.Patients {
		if err := touch(id); err != nil {
			return nil, err
		}
	}
	for _, k := range batch.Aliases.keys() {
		if err := touch(k); err != nil {
			return nil, err
		}
		if err := touch(batch.Aliases[k]); err != nil {
			return nil, err
		}
	}

	for _, e := range prior.Entries() {
		if index[e.Source] {
			continue
		}
		res, err := r.resolve(e.Source)
		if err != nil {
			return nil, err
		}
		if canonicals[res.canonical] {
			if err := touch(e.Source); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

type group struct {
	canonical SourceID
	members   []SourceID
}

// groupByCanonical partitions order by canonical identity. Groups and their
// members keep the order of first occurrence.
func groupByCanonical(order []SourceID, r *resolver) []*group {
	var groups []*group
	byCanonical := make(map[SourceID]*group)
	for _, id := range order {
		canonical := r.memo[id].canonical
		g, ok := byCanonical[canonical]
		if !ok {
			g = &group{canonical: canonical}
			byCanonical[canonical] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, id)
	}
	return groups
}

// claim picks the group's sequence id from the ids its members held before.
// The canonical's prior entry wins. Otherwise each branch into the canonical
// offers the claimant nearest the canonical, and the lowest of those wins.
func (g *group) claim(prior *Output, r *resolver) (SequenceID, bool) {
	if e, ok := prior.entries[g.canonical]; ok {
		return e.ID.Sequence(), true
	}

	type claimant struct {
		seq   SequenceID
		depth int
	}
	nearest := make(map[SourceID]claimant)
	for _, member := range g.members {
		e, ok := prior.entries[member]
		if !ok {
			continue
		}
		c := claimant{seq: e.ID.Sequence(), depth: r.memo[member].depth}
		b := r.branch(member)
		cur, seen := nearest[b]
		if !seen || c.depth < cur.depth || (c.depth == cur.depth && c.seq < cur.seq) {
			nearest[b] = c
		}
	}
	if len(nearest) == 0 {
		return 0, false
	}

	var seq SequenceID
	for _, c := range nearest {
		if seq == 0 || c.seq < seq {
			seq = c.seq
		}
	}
	return seq, true
}

// branch returns the node of id's chain that links directly to the
// canonical. id must resolve and must not be canonical itself.
func (r *resolver) branch(id SourceID) SourceID {
	nodes := r.chain(id)
	return nodes[len(nodes)-2]
}

// memberEntry builds the new entry for one group member. A member whose
// sequence id changes keeps the one it held as Superseded, rehashed under the
// current secret with its own SourceID. An earlier Superseded id is kept.
func memberEntry(secret string, member, canonical SourceID, id AnonymizedID, prior *Output) Entry {
	e := Entry{Source: member, ID: id, Canonical: canonical}
	p, ok := prior.entries[member]
	if !ok {
		return e
	}
	switch {
	case !p.Superseded.IsZero():
		e.Superseded = NewAnonymizedID(digest(secret, member), p.Superseded.Sequence())
	case p.ID.Sequence() != id.Sequence():
		e.Superseded = NewAnonymizedID(digest(secret, member), p.ID.Sequence())
	}
	return e
}
