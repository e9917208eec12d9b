package facts

import (
	"strings"

	"github.com/0xmilen/solsentry/internal/lang"
)

var callWords = map[string]bool{
	"call": true, "delegatecall": true, "staticcall": true,
}

// cpiWords are Solana cross-program invocation entry points; they count as
// external calls so CPI-shaped rules can use the same construct.
var cpiWords = map[string]bool{
	"invoke": true, "invoke_signed": true,
}

var accessModifierNames = map[string]bool{
	"auth": true, "authorized": true, "restricted": true,
	"requiresauth": true, "onlyowner": true, "onlyadmin": true,
}

// walkTokens scans the full token stream once, recording scoped word
// occurrences and token-pattern constructs.
func (ex *extractor) walkTokens() {
	toks := ex.tree.Tokens
	u := ex.tree.Unit
	var fileSites []struct {
		c    Construct
		line int
	}
	for i, tok := range toks {
		switch tok.Kind {
		case lang.TokIdent:
			table, fn := ex.owner(tok.Start)
			if table == nil {
				// tokens outside any contract (pragma, imports) still feed
				// file-level construct detection below
			} else {
				table.addWord(tok.Text, ScopeCode, u.LineOf(tok.Start), fn)
			}
			line := u.LineOf(tok.Start)
			switch tok.Text {
			case "delegatecall":
				if ex.prevPunct(i, ".") {
					ex.add(tok.Start, ConstructDelegatecall, line)
					ex.add(tok.Start, ConstructLowLevelCall, line)
					ex.add(tok.Start, ConstructExternalCall, line)
				}
			case "call", "staticcall":
				if ex.prevPunct(i, ".") {
					ex.add(tok.Start, ConstructLowLevelCall, line)
					ex.add(tok.Start, ConstructExternalCall, line)
				}
			case "invoke", "invoke_signed":
				if ex.nextPunct(i, "(") {
					ex.add(tok.Start, ConstructExternalCall, line)
				}
			case "assembly":
				if ex.nextPunct(i, "{") || ex.nextPunct(i, "(") {
					ex.add(tok.Start, ConstructAssembly, line)
				}
			case "unchecked":
				if ex.nextPunct(i, "{") {
					ex.add(tok.Start, ConstructUnchecked, line)
				}
			case "selfdestruct", "suicide":
				if ex.nextPunct(i, "(") {
					ex.add(tok.Start, ConstructSelfdestruct, line)
				}
			case "origin":
				if ex.identBefore(i, "tx") {
					ex.add(tok.Start, ConstructTxOrigin, line)
				}
			case "timestamp", "number", "difficulty", "prevrandao":
				if ex.identBefore(i, "block") {
					ex.add(tok.Start, ConstructBlockTimestamp, line)
				}
			case "pragma":
				if floatingPragma(toks, i) {
					fileSites = append(fileSites, struct {
						c    Construct
						line int
					}{ConstructFloatingPragma, line})
				}
			}
		case lang.TokComment:
			ex.addWordsFrom(tok, ScopeComment)
		case lang.TokString:
			ex.addWordsFrom(tok, ScopeString)
		}
	}
	// file-level constructs belong to every contract in the file
	for _, s := range fileSites {
		for _, t := range ex.tables {
			t.addConstruct(s.c, s.line, -1)
		}
	}
}

func (ex *extractor) add(offset int, c Construct, line int) {
	table, fn := ex.owner(offset)
	if table != nil {
		table.addConstruct(c, line, fn)
	}
}

func (ex *extractor) prevPunct(i int, s string) bool {
	if i == 0 {
		return false
	}
	t := ex.tree.Tokens[i-1]
	return t.Kind == lang.TokPunct && t.Text == s
}

func (ex *extractor) nextPunct(i int, s string) bool {
	if i+1 >= len(ex.tree.Tokens) {
		return false
	}
	t := ex.tree.Tokens[i+1]
	return t.Kind == lang.TokPunct && t.Text == s
}

// identBefore reports whether the token sequence is `name . <tok[i]>`.
func (ex *extractor) identBefore(i int, name string) bool {
	if i < 2 || !ex.prevPunct(i, ".") {
		return false
	}
	t := ex.tree.Tokens[i-2]
	return t.Kind == lang.TokIdent && t.Text == name
}

// floatingPragma reports whether a `pragma solidity` directive starting at
// token i uses a non-pinned version range.
func floatingPragma(toks []lang.Token, i int) bool {
	if i+1 >= len(toks) || toks[i+1].Text != "solidity" {
		return false
	}
	for j := i + 2; j < len(toks) && j < i+8; j++ {
		t := toks[j]
		if t.Kind == lang.TokPunct {
			switch t.Text {
			case "^", "~", ">", "<":
				return true
			case ";":
				return false
			}
		}
	}
	return false
}

// addWordsFrom splits a comment or string token into words and records each
// with the token's scope. Code-like text inside comments never becomes a code
// token, which keeps identifier-scope rules honest.
func (ex *extractor) addWordsFrom(tok lang.Token, scope Scope) {
	table, fn := ex.owner(tok.Start)
	if table == nil {
		return
	}
	u := ex.tree.Unit
	text := tok.Text
	start := -1
	for i := 0; i <= len(text); i++ {
		var c byte
		if i < len(text) {
			c = text[i]
		}
		if i < len(text) && (isWordByte(c)) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			word := text[start:i]
			if len(word) > 1 || isLetter(word[0]) {
				table.addWord(word, scope, u.LineOf(tok.Start+start), fn)
			}
			start = -1
		}
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// functionFacts walks each function body once for call/write ordering, loop
// containment, recursion and access-control presence.
func (ex *extractor) functionFacts() {
	toks := ex.tree.Tokens
	u := ex.tree.Unit
	for fi, fn := range ex.tree.Functions {
		table := ex.tables[fn.Contract]
		local := ex.fnLocal[fi]
		ff := &table.Functions[local]
		for _, m := range fn.Modifiers {
			low := strings.ToLower(m)
			if strings.HasPrefix(low, "only") || accessModifierNames[low] {
				ff.HasAccessControl = true
			}
		}
		if fn.BodyStart == 0 || fn.BodyEnd <= fn.BodyStart {
			continue
		}
		lo, hi := tokenRange(toks, fn.BodyStart, fn.BodyEnd)
		var loops []loopSpan
		hasRequire, hasMsgSender, hasHasRole, hasIsSigner := false, false, false, false
		for i := lo; i < hi; i++ {
			t := toks[i]
			if t.Kind != lang.TokIdent {
				if t.Kind == lang.TokPunct && t.Text == "=" && isStateWrite(toks, i, lo) {
					ff.StateWriteLines = append(ff.StateWriteLines, u.LineOf(t.Start))
				}
				continue
			}
			line := u.LineOf(t.Start)
			switch t.Text {
			case "require", "assert":
				hasRequire = true
			case "sender":
				if ex.identBefore(i, "msg") {
					hasMsgSender = true
				}
			case "hasRole", "onlyRole", "has_role":
				hasHasRole = true
			case "is_signer":
				hasIsSigner = true
			case "for", "while", "loop":
				if end, ok := loopEnd(toks, i, hi); ok {
					loops = append(loops, loopSpan{start: t.Start, end: end})
				}
			}
			if callWords[t.Text] && ex.prevPunct(i, ".") || cpiWords[t.Text] && ex.nextPunct(i, "(") {
				ff.ExternalCallLines = append(ff.ExternalCallLines, line)
				for _, l := range loops {
					if t.Start > l.start && t.Start < l.end {
						table.addConstruct(ConstructCallInLoop, line, local)
						break
					}
				}
			}
			// direct or this.-qualified self call
			if t.Text == fn.Name && fn.Name != "" && ex.nextPunct(i, "(") {
				if !ex.prevPunct(i, ".") || ex.identBefore(i, "this") {
					if t.Start != fn.Start && !nameIsDecl(toks, i) {
						table.addConstruct(ConstructRecursion, line, local)
					}
				}
			}
		}
		if hasRequire && hasMsgSender || hasHasRole || hasIsSigner {
			ff.HasAccessControl = true
		}
		if len(ff.ExternalCallLines) > 0 && len(ff.StateWriteLines) > 0 &&
			fn.Mutability != "view" && fn.Mutability != "pure" {
			if minOf(ff.ExternalCallLines) < minOf(ff.StateWriteLines) {
				table.addConstruct(ConstructCallBeforeWrite, minOf(ff.ExternalCallLines), local)
			}
		}
	}
}

type loopSpan struct{ start, end int }

// loopEnd finds the byte offset closing the loop body opened after token i.
// Semicolons inside the for-header parens do not terminate the search.
func loopEnd(toks []lang.Token, i, hi int) (int, bool) {
	braces, parens := 0, 0
	for j := i + 1; j < hi; j++ {
		t := toks[j]
		if t.Kind != lang.TokPunct {
			continue
		}
		switch t.Text {
		case "(":
			parens++
		case ")":
			parens--
		case "{":
			braces++
		case "}":
			braces--
			if braces == 0 {
				return t.End, true
			}
		case ";":
			if braces == 0 && parens == 0 {
				return 0, false // bodyless statement before any brace
			}
		}
	}
	return 0, false
}

// nameIsDecl reports whether the identifier at i is itself a declaration
// header (function name right after fn/fun/function), not a call.
func nameIsDecl(toks []lang.Token, i int) bool {
	if i == 0 {
		return false
	}
	prev := toks[i-1]
	if prev.Kind != lang.TokIdent {
		return false
	}
	switch prev.Text {
	case "function", "fun", "fn", "modifier":
		return true
	}
	return false
}

// isStateWrite decides whether the `=` punct at index i is an assignment.
// Comparison operators lex as adjacent single-byte puncts, so `==`, `<=`,
// `>=` and `!=` are excluded by neighborhood inspection.
func isStateWrite(toks []lang.Token, i, lo int) bool {
	if i+1 < len(toks) {
		n := toks[i+1]
		if n.Kind == lang.TokPunct && n.Text == "=" {
			return false
		}
		if n.Kind == lang.TokPunct && n.Text == ">" {
			return false // arrow =>
		}
	}
	if i == lo {
		return false
	}
	p := toks[i-1]
	if p.Kind == lang.TokPunct {
		switch p.Text {
		case "<", ">", "!", "=":
			return false
		case "+", "-", "*", "/", "%", "|", "&", "^":
			return i >= lo+2 && isWriteTarget(toks[i-2])
		default:
			return isWriteTarget(p)
		}
	}
	return isWriteTarget(p)
}

func isWriteTarget(t lang.Token) bool {
	if t.Kind == lang.TokIdent {
		return true
	}
	return t.Kind == lang.TokPunct && (t.Text == "]" || t.Text == ")")
}

// tokenRange returns the half-open token index range covering [start,end).
func tokenRange(toks []lang.Token, start, end int) (int, int) {
	lo := 0
	for lo < len(toks) && toks[lo].Start < start {
		lo++
	}
	hi := lo
	for hi < len(toks) && toks[hi].End <= end {
		hi++
	}
	return lo, hi
}

// contractFacts records contract-level constructs derived from declarations.
func (ex *extractor) contractFacts() {
	u := ex.tree.Unit
	for ci, c := range ex.tree.Contracts {
		table := ex.tables[ci]
		for _, vi := range c.Vars {
			sv := ex.tree.StateVars[vi]
			low := strings.ToLower(sv.Name)
			if strings.Contains(low, "nonce") || strings.Contains(low, "used") ||
				strings.Contains(low, "executed") || strings.Contains(low, "processed") {
				table.addConstruct(ConstructReplayGuard, u.LineOf(sv.Start), -1)
			}
		}
		if !table.HasConstruct(ConstructReplayGuard) && table.CountWord("nonce", ScopeCode) > 0 {
			if s, ok := table.FirstSite("nonce", ScopeCode, false); ok {
				table.addConstruct(ConstructReplayGuard, s.Line, s.Function)
			}
		}
		for li, ff := range table.Functions {
			if ff.IsModifier || ff.HasAccessControl {
				continue
			}
			if ff.Visibility != "public" && ff.Visibility != "external" {
				continue
			}
			if ff.Mutability == "view" || ff.Mutability == "pure" {
				continue
			}
			if len(ff.StateWriteLines) == 0 {
				continue
			}
			if ff.Name == "constructor" {
				continue
			}
			table.addConstruct(ConstructUnprotectedFn, ff.Line, li)
		}
	}
}

func minOf(nums []int) int {
	m := nums[0]
	for _, n := range nums {
		if n < m {
			m = n
		}
	}
	return m
}
