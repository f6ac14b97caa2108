package domain

import (
	"fmt"
	"strings"
)

// KeywordGroup is a named set of surface-form variants counted together.
type KeywordGroup struct {
	// ID is unique within a taxonomy.
	ID string

	// Variants are the surface forms, in the order supplied.
	// Matching is case-insensitive; multi-word phrases are allowed.
	Variants []string
}

// Taxonomy is the validated set of keyword groups for one run.
type Taxonomy struct {
	groups []KeywordGroup
	index  map[string]int
}

// NewTaxonomy validates groups and builds a Taxonomy.
// Group ids must be unique and every group needs at least one
// non-blank variant. An empty group list is valid.
func NewTaxonomy(groups []KeywordGroup) (*Taxonomy, error) {
	t := &Taxonomy{
		groups: make([]KeywordGroup, 0, len(groups)),
		index:  make(map[string]int, len(groups)),
	}

	for i, g := range groups {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: group %d has an empty id", ErrTaxonomyInvalid, i+1)
		}
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate group id %q", ErrTaxonomyInvalid, id)
		}
		if len(g.Variants) == 0 {
			return nil, fmt.Errorf("%w: group %q has no variants", ErrTaxonomyInvalid, id)
		}

		variants := make([]string, 0, len(g.Variants))
		for _, v := range g.Variants {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("%w: group %q has an empty variant", ErrTaxonomyInvalid, id)
			}
			variants = append(variants, v)
		}

		t.index[id] = len(t.groups)
		t.groups = append(t.groups, KeywordGroup{ID: id, Variants: variants})
	}

	return t, nil
}

// Groups returns the groups in load order.
func (t *Taxonomy) Groups() []KeywordGroup {
	if t == nil {
		return nil
	}
	out := make([]KeywordGroup, len(t.groups))
	copy(out, t.groups)
	return out
}

// GroupIDs returns the group ids in load order.
func (t *Taxonomy) GroupIDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.groups))
	for i, g := range t.groups {
		ids[i] = g.ID
	}
	return ids
}

// Group looks up a group by id.
func (t *Taxonomy) Group(id string) (KeywordGroup, bool) {
	if t == nil {
		return KeywordGroup{}, false
	}
	i, ok := t.index[id]
	if !ok {
		return KeywordGroup{}, false
	}
	return t.groups[i], true
}

// Len returns the number of groups.
func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.groups)
}
