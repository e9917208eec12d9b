package rules

import (
	"errors"
	"fmt"
	"sort"
)

// Reserved rule ids emitted by the engine itself, never evaluated as
// predicates but valid targets for --detector and suppression.
const (
	RuleParseError         = "parse-error"
	RuleAnalysisIncomplete = "analysis-incomplete"
)

var ErrNotFound = errors.New("rule not found")

// Registry is the process-wide rule set: populated once at startup, immutable
// afterwards, safe for concurrent reads without synchronization.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry validates and indexes a rule set. A malformed or duplicate
// definition fails the whole load (fail fast on bad rules).
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if d.ID == RuleParseError || d.ID == RuleAnalysisIncomplete {
			return nil, fmt.Errorf("rule id %s is reserved", d.ID)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %s", d.ID)
		}
		r.byID[d.ID] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	sort.Slice(r.defs, func(i, j int) bool { return r.defs[i].ID < r.defs[j].ID })
	for i, d := range r.defs {
		r.byID[d.ID] = i
	}
	return r, nil
}

// All returns every definition, ordered by id.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Get(id string) (Definition, error) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.defs[i], nil
}

func (r *Registry) Len() int { return len(r.defs) }

// Select returns the definitions for the requested ids, or all when ids is
// empty. An unknown id is a configuration error.
func (r *Registry) Select(ids []string) ([]Definition, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	var out []Definition
	for _, id := range ids {
		d, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
