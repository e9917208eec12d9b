package rules

import (
	"fmt"

	"github.com/0xmilen/solsentry/internal/facts"
	"github.com/0xmilen/solsentry/internal/model"
)

// Group is an OR-set of synonymous keywords treated as one logical signal.
type Group struct {
	Any       []string
	Scope     facts.Scope
	Substring bool
}

// Match reports whether any synonym of the group occurs in the table.
func (g Group) Match(t *facts.Table) bool {
	return g.Count(t) > 0
}

// Count returns the combined occurrence count across the group's synonyms,
// counted as one logical signal (never double-counted per synonym sighting).
func (g Group) Count(t *facts.Table) int {
	n := 0
	for _, w := range g.Any {
		if g.Substring {
			n += t.CountSubstring(w, g.scope())
		} else {
			n += t.CountWord(w, g.scope())
		}
	}
	return n
}

// FirstSite locates the earliest occurrence of any synonym.
func (g Group) FirstSite(t *facts.Table) (facts.Site, bool) {
	best := facts.Site{}
	found := false
	for _, w := range g.Any {
		if s, ok := t.FirstSite(w, g.scope(), g.Substring); ok {
			if !found || s.Line < best.Line {
				best = s
				found = true
			}
		}
	}
	return best, found
}

func (g Group) scope() facts.Scope {
	if g.Scope == 0 {
		return facts.ScopeDefault
	}
	return g.Scope
}

// Forbid blocks a rule when its condition holds. AllPresent blocks only when
// every listed group matches ("fires unless BOTH sanitize AND validate are
// present"); AnyPresent blocks as soon as one group matches.
type Forbid struct {
	AllPresent []Group
	AnyPresent []Group
}

// Blocks evaluates the negation predicate against the table.
func (f Forbid) Blocks(t *facts.Table) bool {
	if len(f.AllPresent) > 0 {
		all := true
		for _, g := range f.AllPresent {
			if !g.Match(t) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	for _, g := range f.AnyPresent {
		if g.Match(t) {
			return true
		}
	}
	return false
}

type CountOp string

const (
	CountExactly CountOp = "exactly"
	CountAtLeast CountOp = "at_least"
	CountAtMost  CountOp = "at_most"
)

// Count constrains the combined occurrence count of a synonym group. Exact
// integer comparison: "exactly 1" is strict equality.
type Count struct {
	Group Group
	Op    CountOp
	N     int
}

func (c Count) Holds(t *facts.Table) bool {
	n := c.Group.Count(t)
	switch c.Op {
	case CountExactly:
		return n == c.N
	case CountAtLeast:
		return n >= c.N
	case CountAtMost:
		return n <= c.N
	}
	return false
}

// Definition is one detector expressed as data. Definitions are immutable
// value objects; the evaluator is generic over them.
type Definition struct {
	ID            string
	Title         string
	Severity      model.Severity
	Category      string
	Message       string
	FixSuggestion string
	References    []string

	// Require: AND across groups, OR within each group.
	Require []Group
	// Forbid: any satisfied entry blocks the rule.
	Forbid []Forbid
	// Counts: all must hold.
	Counts []Count
	// Constructs: all must be observed.
	Constructs []facts.Construct
	// ForbidConstructs: none may be observed.
	ForbidConstructs []facts.Construct
	// NeedsFullBody: skip contracts with partially-parsed functions and emit
	// a diagnostic instead of silently false-negating.
	NeedsFullBody bool
}

// Validate rejects malformed definitions at load time; bad rules are a
// configuration error, never a silent skip during evaluation.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("rule with empty id")
	}
	if !model.ValidSeverity(string(d.Severity)) {
		return fmt.Errorf("rule %s: invalid severity %q", d.ID, d.Severity)
	}
	if len(d.Require) == 0 && len(d.Counts) == 0 && len(d.Constructs) == 0 {
		return fmt.Errorf("rule %s: no required keyword groups, counts or constructs", d.ID)
	}
	for i, g := range d.Require {
		if len(g.Any) == 0 {
			return fmt.Errorf("rule %s: required keyword group %d is empty", d.ID, i)
		}
	}
	for _, f := range d.Forbid {
		if len(f.AllPresent) == 0 && len(f.AnyPresent) == 0 {
			return fmt.Errorf("rule %s: empty forbid predicate", d.ID)
		}
		for _, g := range append(append([]Group{}, f.AllPresent...), f.AnyPresent...) {
			if len(g.Any) == 0 {
				return fmt.Errorf("rule %s: forbidden keyword group is empty", d.ID)
			}
		}
	}
	for i, c := range d.Counts {
		if len(c.Group.Any) == 0 {
			return fmt.Errorf("rule %s: count constraint %d has an empty group", d.ID, i)
		}
		if c.N < 0 {
			return fmt.Errorf("rule %s: count constraint %d has negative n", d.ID, i)
		}
		switch c.Op {
		case CountExactly, CountAtLeast, CountAtMost:
		default:
			return fmt.Errorf("rule %s: count constraint %d has unknown op %q", d.ID, i, c.Op)
		}
	}
	for _, c := range append(append([]facts.Construct{}, d.Constructs...), d.ForbidConstructs...) {
		if !facts.ValidConstruct(string(c)) {
			return fmt.Errorf("rule %s: unknown construct %q", d.ID, c)
		}
	}
	return nil
}
