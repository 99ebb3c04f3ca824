package entities

// PatchCache is a set of changes indexed by every alias of each change,
// so it can be looked up with any reference form (number, full Change-Id, SHA1).
type PatchCache struct {
	byAlias map[string]*Change
	order   []*Change
}

// NewPatchCache creates a cache holding the given changes.
func NewPatchCache(changes ...*Change) *PatchCache {
	cache := &PatchCache{byAlias: make(map[string]*Change)}
	cache.Inject(changes...)
	return cache
}

// Inject adds changes under all of their aliases.
func (p *PatchCache) Inject(changes ...*Change) {
	for _, change := range changes {
		p.InjectCustomKeys(change.Aliases(), change)
	}
}

// InjectCustomKeys adds a change under the given keys. Generally you want Inject instead.
func (p *PatchCache) InjectCustomKeys(keys []string, change *Change) {
	if len(keys) == 0 {
		return
	}
	known := false
	for _, existing := range p.order {
		if existing == change {
			known = true
			break
		}
	}
	if !known {
		p.order = append(p.order, change)
	}
	for _, key := range keys {
		p.byAlias[key] = change
	}
}

// Remove drops changes and all of their aliases.
func (p *PatchCache) Remove(changes ...*Change) {
	for _, change := range changes {
		for _, key := range change.Aliases() {
			delete(p.byAlias, key)
		}
		for i, existing := range p.order {
			if existing == change {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Get returns the change matching any alias of query, or nil.
func (p *PatchCache) Get(query PatchQuery) *Change {
	for _, key := range query.Aliases() {
		if change, ok := p.byAlias[key]; ok {
			return change
		}
	}
	return nil
}

// Contains reports whether the change referenced by query is cached.
func (p *PatchCache) Contains(query PatchQuery) bool {
	return p.Get(query) != nil
}

// Has is Contains for an already resolved change.
func (p *PatchCache) Has(change *Change) bool {
	return p.Contains(change.PatchQuery)
}

// Changes returns the distinct cached changes in insertion order.
func (p *PatchCache) Changes() []*Change {
	seen := make(map[*Change]struct{}, len(p.order))
	out := make([]*Change, 0, len(p.order))
	for _, change := range p.order {
		if _, ok := seen[change]; ok {
			continue
		}
		if !p.stillIndexed(change) {
			continue
		}
		seen[change] = struct{}{}
		out = append(out, change)
	}
	return out
}

// Len returns the number of distinct cached changes.
func (p *PatchCache) Len() int {
	return len(p.Changes())
}

// Copy returns an independent cache with the same aliases.
func (p *PatchCache) Copy() *PatchCache {
	clone := &PatchCache{
		byAlias: make(map[string]*Change, len(p.byAlias)),
		order:   append([]*Change(nil), p.order...),
	}
	for key, change := range p.byAlias {
		clone.byAlias[key] = change
	}
	return clone
}

func (p *PatchCache) stillIndexed(change *Change) bool {
	for _, value := range p.byAlias {
		if value == change {
			return true
		}
	}
	return false
}
