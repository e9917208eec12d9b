package facts

import (
	"strings"

	"github.com/0xmilen/solsentry/internal/lang"
	"github.com/0xmilen/solsentry/internal/source"
)

// Scope says where in the source a word occurrence was seen. Rules pick the
// scopes they care about; identifiers and comments are the default, string
// literals are opt-in (prompt-injection style rules).
type Scope uint8

const (
	ScopeCode Scope = 1 << iota
	ScopeComment
	ScopeString

	ScopeDefault = ScopeCode | ScopeComment
	ScopeAll     = ScopeCode | ScopeComment | ScopeString
)

func ParseScope(names []string) (Scope, bool) {
	if len(names) == 0 {
		return ScopeDefault, true
	}
	var s Scope
	for _, n := range names {
		switch strings.ToLower(n) {
		case "code", "identifiers":
			s |= ScopeCode
		case "comments":
			s |= ScopeComment
		case "strings":
			s |= ScopeString
		default:
			return 0, false
		}
	}
	return s, true
}

// Construct names a structural observation made by the extractor.
type Construct string

const (
	ConstructDelegatecall    Construct = "delegatecall"
	ConstructLowLevelCall    Construct = "low-level-call"
	ConstructExternalCall    Construct = "external-call"
	ConstructAssembly        Construct = "assembly"
	ConstructUnchecked       Construct = "unchecked-block"
	ConstructTxOrigin        Construct = "tx-origin"
	ConstructSelfdestruct    Construct = "selfdestruct"
	ConstructCallInLoop      Construct = "call-in-loop"
	ConstructCallBeforeWrite Construct = "call-before-state-write"
	ConstructRecursion       Construct = "recursion"
	ConstructReplayGuard     Construct = "replay-guard"
	ConstructBlockTimestamp  Construct = "block-timestamp"
	ConstructFloatingPragma  Construct = "floating-pragma"
	ConstructUnprotectedFn   Construct = "unprotected-state-change"
)

var knownConstructs = map[Construct]bool{
	ConstructDelegatecall: true, ConstructLowLevelCall: true,
	ConstructExternalCall: true, ConstructAssembly: true,
	ConstructUnchecked: true, ConstructTxOrigin: true,
	ConstructSelfdestruct: true, ConstructCallInLoop: true,
	ConstructCallBeforeWrite: true, ConstructRecursion: true,
	ConstructReplayGuard: true, ConstructBlockTimestamp: true,
	ConstructFloatingPragma: true, ConstructUnprotectedFn: true,
}

// ValidConstruct reports whether name is a construct the extractor produces.
func ValidConstruct(name string) bool { return knownConstructs[Construct(name)] }

// Occurrence is one sighting of a word.
type Occurrence struct {
	Word     string `json:"word"` // lowercased
	Scope    Scope  `json:"scope"`
	Line     int    `json:"line"`
	Function int    `json:"function"` // index into Table.Functions, -1
}

// Site locates a construct observation.
type Site struct {
	Line     int `json:"line"`
	Function int `json:"function"` // index into Table.Functions, -1
}

// FunctionFacts carries the per-function observations rules may query.
type FunctionFacts struct {
	Name              string `json:"name"`
	Visibility        string `json:"visibility"`
	Mutability        string `json:"mutability"`
	IsModifier        bool   `json:"isModifier"`
	Line              int    `json:"line"`
	Partial           bool   `json:"partial"`
	HasAccessControl  bool   `json:"hasAccessControl"`
	ExternalCallLines []int  `json:"externalCallLines,omitempty"`
	StateWriteLines   []int  `json:"stateWriteLines,omitempty"`
}

// Table is the immutable fact table for one contract. It is complete over the
// contract's full textual span before any rule evaluates against it.
type Table struct {
	Unit         *source.Unit             `json:"-"`
	File         string                   `json:"file"`
	Contract     string                   `json:"contract"`
	Kind         string                   `json:"kind"`
	Line         int                      `json:"line"` // contract declaration line
	Words        map[string][]Occurrence  `json:"words"`
	Constructs   map[Construct][]Site     `json:"constructs"`
	Functions    []FunctionFacts          `json:"functions"`
	Partial      bool                     `json:"partial"`
}

// CountWord returns combined occurrences of word (lowercased, whole-token
// match) within the given scopes.
func (t *Table) CountWord(word string, scope Scope) int {
	n := 0
	for _, occ := range t.Words[strings.ToLower(word)] {
		if occ.Scope&scope != 0 {
			n++
		}
	}
	return n
}

// CountSubstring returns occurrences where word appears as a case-insensitive
// substring of a seen word, for rules that opt into substring matching.
func (t *Table) CountSubstring(word string, scope Scope) int {
	w := strings.ToLower(word)
	n := 0
	for seen, occs := range t.Words {
		if !strings.Contains(seen, w) {
			continue
		}
		for _, occ := range occs {
			if occ.Scope&scope != 0 {
				n++
			}
		}
	}
	return n
}

// FirstSite returns the location of the first occurrence of word in scope.
func (t *Table) FirstSite(word string, scope Scope, substring bool) (Site, bool) {
	w := strings.ToLower(word)
	best := Site{}
	found := false
	consider := func(occs []Occurrence) {
		for _, occ := range occs {
			if occ.Scope&scope == 0 {
				continue
			}
			if !found || occ.Line < best.Line ||
				(occ.Line == best.Line && occ.Function < best.Function) {
				best = Site{Line: occ.Line, Function: occ.Function}
				found = true
			}
		}
	}
	if substring {
		for seen, occs := range t.Words {
			if strings.Contains(seen, w) {
				consider(occs)
			}
		}
	} else {
		consider(t.Words[w])
	}
	return best, found
}

// HasConstruct reports whether the construct was observed anywhere in the
// contract.
func (t *Table) HasConstruct(c Construct) bool { return len(t.Constructs[c]) > 0 }

func (t *Table) addWord(word string, scope Scope, line, fn int) {
	w := strings.ToLower(word)
	if w == "" {
		return
	}
	t.Words[w] = append(t.Words[w], Occurrence{Word: w, Scope: scope, Line: line, Function: fn})
}

func (t *Table) addConstruct(c Construct, line, fn int) {
	t.Constructs[c] = append(t.Constructs[c], Site{Line: line, Function: fn})
}

// Extract walks the parse tree once and produces one fact table per contract.
// The walk is read-only and deterministic.
func Extract(tree *lang.Tree) []*Table {
	u := tree.Unit
	tables := make([]*Table, len(tree.Contracts))
	fnLocal := make([]int, len(tree.Functions)) // tree fn index -> table fn index
	for ci, c := range tree.Contracts {
		t := &Table{
			Unit:       u,
			File:       u.Path,
			Contract:   c.Name,
			Kind:       string(c.Kind),
			Line:       u.LineOf(c.Start),
			Words:      map[string][]Occurrence{},
			Constructs: map[Construct][]Site{},
		}
		for _, fi := range c.Funcs {
			f := tree.Functions[fi]
			fnLocal[fi] = len(t.Functions)
			t.Functions = append(t.Functions, FunctionFacts{
				Name:       f.Name,
				Visibility: f.Visibility,
				Mutability: f.Mutability,
				IsModifier: f.IsModifier,
				Line:       u.LineOf(f.Start),
				Partial:    f.Partial,
			})
			if f.Partial {
				t.Partial = true
			}
		}
		tables[ci] = t
	}
	if len(tables) == 0 {
		return nil
	}

	ex := &extractor{tree: tree, tables: tables, fnLocal: fnLocal}
	ex.walkTokens()
	ex.functionFacts()
	ex.contractFacts()
	return tables
}

type extractor struct {
	tree    *lang.Tree
	tables  []*Table
	fnLocal []int
}

// owner resolves the (table, local function index) a byte offset belongs to.
func (ex *extractor) owner(offset int) (*Table, int) {
	ci := ex.tree.ContractAt(offset)
	if ci < 0 {
		return nil, -1
	}
	fi := ex.tree.FunctionAt(offset)
	local := -1
	if fi >= 0 && ex.tree.Functions[fi].Contract == ci {
		local = ex.fnLocal[fi]
	}
	return ex.tables[ci], local
}
