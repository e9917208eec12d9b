package lang

// Tolerant lexer for brace-delimited contract languages (Solidity, Move,
// Solana/Rust). It never fails: anything it does not understand becomes a
// single-byte punct token. Comments and string literals are kept as tokens so
// downstream keyword matching can scope itself to code, comments or strings.

type TokenKind int

const (
	TokIdent TokenKind = iota
	TokNumber
	TokString
	TokComment
	TokPunct
)

type Token struct {
	Kind  TokenKind
	Text  string
	Start int // byte offset
	End   int // byte offset, exclusive
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Lex tokenizes src. Whitespace is dropped; everything else is preserved with
// byte-span provenance.
func Lex(src string) []Token {
	var toks []Token
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '/' && i+1 < n && src[i+1] == '/':
			start := i
			for i < n && src[i] != '\n' {
				i++
			}
			toks = append(toks, Token{Kind: TokComment, Text: src[start:i], Start: start, End: i})
		case c == '/' && i+1 < n && src[i+1] == '*':
			start := i
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n // unterminated block comment runs to EOF
			}
			toks = append(toks, Token{Kind: TokComment, Text: src[start:i], Start: start, End: i})
		case c == '"':
			start := i
			i++
			for i < n && src[i] != '"' {
				if src[i] == '\\' && i+1 < n {
					i++
				}
				i++
			}
			if i < n {
				i++
			}
			toks = append(toks, Token{Kind: TokString, Text: src[start:i], Start: start, End: i})
		case c == '\'':
			// single-quoted literal only if it closes on the same line; Rust
			// lifetimes ('a) must not swallow the rest of the file
			if end, ok := scanSingleQuoted(src, i); ok {
				toks = append(toks, Token{Kind: TokString, Text: src[i:end], Start: i, End: end})
				i = end
			} else {
				toks = append(toks, Token{Kind: TokPunct, Text: "'", Start: i, End: i + 1})
				i++
			}
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, Token{Kind: TokIdent, Text: src[start:i], Start: start, End: i})
		case isDigit(c):
			start := i
			for i < n && (isIdentPart(src[i]) || src[i] == '.') {
				i++
			}
			toks = append(toks, Token{Kind: TokNumber, Text: src[start:i], Start: start, End: i})
		default:
			toks = append(toks, Token{Kind: TokPunct, Text: src[i : i+1], Start: i, End: i + 1})
			i++
		}
	}
	return toks
}

func scanSingleQuoted(src string, start int) (int, bool) {
	i := start + 1
	n := len(src)
	for i < n {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '\n':
			return 0, false
		case '\'':
			return i + 1, true
		}
		i++
	}
	return 0, false
}
