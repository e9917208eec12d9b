package lang

import (
	"path/filepath"
	"strings"

	"github.com/0xmilen/solsentry/internal/source"
)

type ContractKind string

const (
	KindContract  ContractKind = "contract"
	KindInterface ContractKind = "interface"
	KindLibrary   ContractKind = "library"
	KindModule    ContractKind = "module"
	// KindFile is a synthetic container for top-level functions (Rust/Solana
	// programs have no contract braces).
	KindFile ContractKind = "file"
)

type Contract struct {
	Name     string
	Kind     ContractKind
	Start    int
	End      int
	Inherits []string
	Funcs    []int // indices into Tree.Functions
	Vars     []int // indices into Tree.StateVars
	Parent   int   // enclosing contract index, -1 at top level
}

type Function struct {
	Name       string
	Contract   int // index into Tree.Contracts
	Visibility string
	Mutability string
	Modifiers  []string
	Params     string
	IsModifier bool
	Start      int
	BodyStart  int // offset of the opening brace, 0 when bodyless
	BodyEnd    int // offset just past the closing brace
	End        int
	Partial    bool
}

type StateVar struct {
	Name       string
	Type       string
	Visibility string
	Contract   int
	Start      int
	HasInit    bool
}

type ParseError struct {
	Offset  int
	Message string
}

// Tree is the arena for one parsed unit. Nodes reference each other by index
// so the whole tree is freed in one step and shares read-only across workers.
type Tree struct {
	Unit      *source.Unit
	Tokens    []Token
	Contracts []Contract
	Functions []Function
	StateVars []StateVar
	Errors    []ParseError
}

// ContractAt returns the index of the innermost contract whose span covers the
// byte offset, or -1.
func (t *Tree) ContractAt(offset int) int {
	best := -1
	for i, c := range t.Contracts {
		if offset >= c.Start && offset < c.End {
			if best == -1 || c.Start >= t.Contracts[best].Start {
				best = i
			}
		}
	}
	return best
}

// FunctionAt returns the index of the function whose declaration or body span
// covers the byte offset, or -1.
func (t *Tree) FunctionAt(offset int) int {
	best := -1
	for i, f := range t.Functions {
		if offset >= f.Start && offset < f.End {
			if best == -1 || f.Start >= t.Functions[best].Start {
				best = i
			}
		}
	}
	return best
}

type frame struct {
	contract int // contract opened by this brace, -1
	function int // function opened by this brace, -1
}

type parser struct {
	tree  *Tree
	toks  []Token
	src   string
	stack []frame
}

// Parse builds a tolerant parse tree. It never fails; unrecoverable trouble is
// recorded in Tree.Errors and partially-parsed functions are marked Partial.
func Parse(u *source.Unit) *Tree {
	p := &parser{
		tree: &Tree{Unit: u, Tokens: Lex(u.Content)},
		src:  u.Content,
	}
	p.toks = p.tree.Tokens
	p.run()
	return p.tree
}

func (p *parser) currentContract() int {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].contract >= 0 {
			return p.stack[i].contract
		}
	}
	return -1
}

func (p *parser) inFunction() bool {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].function >= 0 {
			return true
		}
		if p.stack[i].contract >= 0 {
			return false
		}
	}
	return false
}

func (p *parser) run() {
	i := 0
	for i < len(p.toks) {
		tok := p.toks[i]
		if tok.Kind == TokComment || tok.Kind == TokString || tok.Kind == TokNumber {
			i++
			continue
		}
		if tok.Kind == TokPunct {
			switch tok.Text {
			case "{":
				p.stack = append(p.stack, frame{contract: -1, function: -1})
			case "}":
				i = p.closeBrace(i)
			}
			i++
			continue
		}
		// identifiers
		switch tok.Text {
		case "contract", "interface", "library":
			if !p.inFunction() {
				i = p.parseContract(i, ContractKind(tok.Text))
				continue
			}
		case "module":
			if !p.inFunction() && p.currentContract() == -1 {
				i = p.parseContract(i, KindModule)
				continue
			}
		case "function", "fun", "fn":
			if p.currentContract() >= 0 && !p.inFunction() && p.functionTypedVar(i) {
				if next, ok := p.parseStateVar(i); ok {
					i = next
					continue
				}
			}
			i = p.parseFunction(i, "", false)
			continue
		case "modifier":
			if p.currentContract() >= 0 && !p.inFunction() {
				i = p.parseFunction(i, "", true)
				continue
			}
		case "constructor", "fallback", "receive":
			if p.currentContract() >= 0 && !p.inFunction() && p.nextPunctIs(i+1, "(") {
				i = p.parseFunction(i, tok.Text, false)
				continue
			}
		default:
			if p.currentContract() >= 0 && !p.inFunction() {
				if next, ok := p.parseStateVar(i); ok {
					i = next
					continue
				}
			}
		}
		i++
	}
	p.closeDangling()
}

var fnHeaderKeywords = map[string]bool{
	"public": true, "external": true, "internal": true, "private": true,
	"view": true, "pure": true, "payable": true, "constant": true,
	"virtual": true, "override": true, "returns": true,
}

// functionTypedVar reports whether the "function" keyword at i starts a
// function-typed state variable: an unnamed function type whose header ends in
// a semicolon with a trailing non-keyword identifier (the variable name).
// Old-style unnamed fallbacks ("function() payable { }") end in a brace or a
// keyword and stay functions.
func (p *parser) functionTypedVar(i int) bool {
	if !p.nextPunctIs(i+1, "(") {
		return false
	}
	j := p.skipParenGroup(i + 1)
	last := ""
	for j < len(p.toks) {
		t := p.toks[j]
		if t.Kind == TokPunct {
			switch t.Text {
			case "{", "}":
				return false
			case ";":
				return last != "" && !fnHeaderKeywords[last]
			case "(":
				j = p.skipParenGroup(j)
				continue
			}
			j++
			continue
		}
		if t.Kind == TokIdent {
			last = t.Text
		}
		j++
	}
	return false
}

func (p *parser) nextPunctIs(i int, s string) bool {
	if i >= len(p.toks) {
		return false
	}
	t := p.toks[i]
	return t.Kind == TokPunct && t.Text == s
}

func (p *parser) closeBrace(i int) int {
	if len(p.stack) == 0 {
		p.tree.Errors = append(p.tree.Errors, ParseError{Offset: p.toks[i].Start, Message: "unexpected closing brace"})
		return i
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	end := p.toks[i].End
	if top.function >= 0 {
		p.tree.Functions[top.function].BodyEnd = end
		p.tree.Functions[top.function].End = end
	}
	if top.contract >= 0 {
		p.tree.Contracts[top.contract].End = end
	}
	return i
}

func (p *parser) closeDangling() {
	if len(p.stack) == 0 {
		return
	}
	end := len(p.src)
	for _, f := range p.stack {
		if f.function >= 0 {
			p.tree.Functions[f.function].End = end
			p.tree.Functions[f.function].Partial = true
		}
		if f.contract >= 0 {
			p.tree.Contracts[f.contract].End = end
		}
	}
	p.stack = nil
	p.tree.Errors = append(p.tree.Errors, ParseError{Offset: end, Message: "unbalanced braces at end of file"})
}

// fileContainer returns the synthetic container for top-level declarations,
// creating it on first use.
func (p *parser) fileContainer() int {
	for i, c := range p.tree.Contracts {
		if c.Kind == KindFile {
			return i
		}
	}
	name := filepath.Base(p.tree.Unit.Path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	p.tree.Contracts = append(p.tree.Contracts, Contract{
		Name: name, Kind: KindFile, Start: 0, End: len(p.src), Parent: -1,
	})
	return len(p.tree.Contracts) - 1
}

func (p *parser) parseContract(i int, kind ContractKind) int {
	start := p.toks[i].Start
	i++
	c := Contract{Kind: kind, Start: start, End: len(p.src), Parent: p.currentContract()}
	// name: idents up to "is", "{" or ";"; Move modules use addr::name
	for i < len(p.toks) {
		t := p.toks[i]
		if t.Kind == TokIdent {
			if t.Text == "is" {
				break
			}
			c.Name = t.Text
			i++
			continue
		}
		if t.Kind == TokNumber || (t.Kind == TokPunct && t.Text == ":") {
			// Move module addresses: module 0x1::name
			i++
			continue
		}
		break
	}
	// inheritance list
	if i < len(p.toks) && p.toks[i].Kind == TokIdent && p.toks[i].Text == "is" {
		i++
		for i < len(p.toks) {
			t := p.toks[i]
			if t.Kind == TokIdent {
				c.Inherits = append(c.Inherits, t.Text)
				i++
				i = p.skipParenGroup(i)
				continue
			}
			if t.Kind == TokPunct && (t.Text == "," || t.Text == ".") {
				i++
				continue
			}
			break
		}
	}
	idx := len(p.tree.Contracts)
	p.tree.Contracts = append(p.tree.Contracts, c)
	// find the body brace or a forward declaration semicolon
	for i < len(p.toks) {
		t := p.toks[i]
		if t.Kind == TokPunct && t.Text == "{" {
			p.stack = append(p.stack, frame{contract: idx, function: -1})
			return i + 1
		}
		if t.Kind == TokPunct && t.Text == ";" {
			p.tree.Contracts[idx].End = t.End
			return i + 1
		}
		i++
	}
	return i
}

func (p *parser) skipParenGroup(i int) int {
	if !p.nextPunctIs(i, "(") {
		return i
	}
	depth := 0
	for ; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind != TokPunct {
			continue
		}
		if t.Text == "(" {
			depth++
		}
		if t.Text == ")" {
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

func (p *parser) parseFunction(i int, name string, isModifier bool) int {
	start := p.toks[i].Start
	declWord := p.toks[i].Text
	vis := ""
	// Rust "pub fn" / Move "public entry fun" put visibility before the keyword
	if declWord == "fn" || declWord == "fun" {
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			if p.toks[j].Kind != TokIdent {
				break
			}
			switch p.toks[j].Text {
			case "pub", "public":
				vis = "public"
				start = p.toks[j].Start
			case "entry":
				start = p.toks[j].Start
			default:
				j = -1
			}
		}
	}
	i++
	if name == "" {
		if i < len(p.toks) && p.toks[i].Kind == TokIdent {
			name = p.toks[i].Text
			i++
		} else if p.nextPunctIs(i, "(") {
			// old-style unnamed fallback: function() payable { }
			name = "fallback"
		}
	}
	fn := Function{
		Name:       name,
		Contract:   p.currentContract(),
		Visibility: vis,
		IsModifier: isModifier || declWord == "modifier",
		Start:      start,
		End:        len(p.src),
	}
	if fn.Contract == -1 {
		fn.Contract = p.fileContainer()
	}
	// parameter list
	if p.nextPunctIs(i, "(") {
		open := p.toks[i].Start
		j := p.skipParenGroup(i)
		if j > i+1 {
			closeOff := p.toks[j-1].End
			if closeOff > open+1 {
				fn.Params = strings.TrimSpace(p.src[open+1 : closeOff-1])
			}
		}
		i = j
	}
	// header tail: visibility, mutability, modifiers, returns(...)
	for i < len(p.toks) {
		t := p.toks[i]
		if t.Kind == TokPunct {
			if t.Text == "{" || t.Text == ";" {
				break
			}
			i++
			continue
		}
		if t.Kind != TokIdent {
			i++
			continue
		}
		switch t.Text {
		case "public", "external", "internal", "private":
			fn.Visibility = t.Text
			i++
		case "view", "pure", "payable", "constant":
			fn.Mutability = t.Text
			i++
		case "returns", "return":
			i++
			i = p.skipParenGroup(i)
		case "virtual", "override":
			i++
			i = p.skipParenGroup(i)
		default:
			fn.Modifiers = append(fn.Modifiers, t.Text)
			i++
			i = p.skipParenGroup(i)
		}
	}
	idx := len(p.tree.Functions)
	ci := fn.Contract
	p.tree.Functions = append(p.tree.Functions, fn)
	p.tree.Contracts[ci].Funcs = append(p.tree.Contracts[ci].Funcs, idx)
	if i < len(p.toks) && p.toks[i].Text == "{" {
		p.tree.Functions[idx].BodyStart = p.toks[i].Start
		p.stack = append(p.stack, frame{contract: -1, function: idx})
		return i + 1
	}
	if i < len(p.toks) && p.toks[i].Text == ";" {
		p.tree.Functions[idx].End = p.toks[i].End
		return i + 1
	}
	// ran off the end of the file mid-declaration
	p.tree.Functions[idx].Partial = true
	return i
}

var memberKeywords = map[string]bool{
	"using": true, "event": true, "struct": true, "enum": true, "error": true,
	"pragma": true, "import": true, "type": true, "emit": true, "use": true,
	"impl": true, "let": true, "const": true, "static": true, "mod": true,
}

// parseStateVar recognizes a contract-level variable declaration ending in a
// semicolon. Declarations it cannot shape (events, using-for, structs) are
// left for the generic walk.
func (p *parser) parseStateVar(i int) (int, bool) {
	first := p.toks[i]
	if memberKeywords[first.Text] {
		return p.skipToStatementEnd(i), true
	}
	sv := StateVar{Type: first.Text, Contract: p.currentContract(), Start: first.Start}
	lastIdent := ""
	j := i + 1
	if first.Text == "mapping" || first.Text == "function" {
		j = p.skipParenGroup(j)
	}
	for j < len(p.toks) {
		t := p.toks[j]
		if t.Kind == TokPunct {
			switch t.Text {
			case ";":
				if lastIdent == "" {
					return 0, false
				}
				sv.Name = lastIdent
				idx := len(p.tree.StateVars)
				p.tree.StateVars = append(p.tree.StateVars, sv)
				p.tree.Contracts[sv.Contract].Vars = append(p.tree.Contracts[sv.Contract].Vars, idx)
				return j + 1, true
			case "=":
				if lastIdent == "" {
					return 0, false
				}
				sv.Name = lastIdent
				sv.HasInit = true
				idx := len(p.tree.StateVars)
				p.tree.StateVars = append(p.tree.StateVars, sv)
				p.tree.Contracts[sv.Contract].Vars = append(p.tree.Contracts[sv.Contract].Vars, idx)
				return p.skipToStatementEnd(j), true
			case "{", "}", "(":
				return 0, false
			case "[", "]", ".", ">":
				j++
				continue
			default:
				j++
				continue
			}
		}
		if t.Kind == TokIdent {
			switch t.Text {
			case "public", "private", "internal":
				sv.Visibility = t.Text
			case "constant", "immutable", "external", "view", "pure", "payable":
				// qualifiers, not the name
			case "returns":
				j++
				j = p.skipParenGroup(j)
				continue
			default:
				lastIdent = t.Text
			}
		}
		j++
	}
	return 0, false
}

// skipToStatementEnd advances past the terminating semicolon, skipping over
// any brace group opened on the way (struct/enum bodies).
func (p *parser) skipToStatementEnd(i int) int {
	depth := 0
	for ; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind != TokPunct {
			continue
		}
		switch t.Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return i + 1
			}
			if depth < 0 {
				return i
			}
		case ";":
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}
