package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenKeyword
	tokenNumber
	tokenString
	tokenTemplate
	tokenPunct
)

type templatePart struct {
	text   string
	source string
	isExpr bool
	line   int
}

type token struct {
	kind  tokenKind
	raw   string
	num   float64
	parts []templatePart
	line  int
	col   int
	// newline reports whether a line break separates this token from the
	// previous one. The parser uses it for automatic semicolon insertion.
	newline bool
}

var keywords = map[string]struct{}{
	"var": {}, "let": {}, "const": {}, "if": {}, "else": {}, "for": {},
	"in": {}, "while": {}, "do": {}, "break": {}, "continue": {},
	"return": {}, "function": {}, "typeof": {}, "void": {}, "true": {},
	"false": {}, "null": {}, "undefined": {},
}

// longest first so that "===" wins over "==" and "=".
var punctuators = []string{
	"===", "!==", "**",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=",
	"+", "-", "*", "/", "%", "<", ">", "=", "!", "?", ":", ".", ",", ";",
	"(", ")", "[", "]", "{", "}",
}

type lexer struct {
	src     string
	pos     int
	line    int
	col     int
	newline bool
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &EvaluationError{
		Expression: lx.src,
		Line:       lx.line,
		Column:     lx.col,
		Err:        fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...)),
	}
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
			lx.newline = true
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
			lx.advance(1)
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
		case strings.HasPrefix(lx.src[lx.pos:], "/*"):
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return lx.errorf("unterminated comment")
			}
			lx.advance(end + 4)
		default:
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if r == '\u00a0' || r == '\ufeff' || r == '\u2028' || r == '\u2029' {
				lx.advance(size)
				continue
			}
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (token, error) {
	lx.newline = false
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	tok := token{line: lx.line, col: lx.col, newline: lx.newline}
	if lx.pos >= len(lx.src) {
		tok.kind = tokenEOF
		return tok, nil
	}

	rest := lx.src[lx.pos:]
	ch := rest[0]

	switch {
	case isIdentStart(rest):
		end := identEnd(rest)
		word := rest[:end]
		lx.advance(end)
		tok.raw = word
		if _, ok := keywords[word]; ok {
			tok.kind = tokenKeyword
		} else {
			tok.kind = tokenIdent
		}
		return tok, nil
	case isDigit(ch) || (ch == '.' && len(rest) > 1 && isDigit(rest[1])):
		return lx.number(tok)
	case ch == '"' || ch == '\'':
		value, n, err := lx.quoted(rest, ch)
		if err != nil {
			return token{}, err
		}
		lx.advance(n)
		tok.kind = tokenString
		tok.raw = value
		return tok, nil
	case ch == '`':
		return lx.template(tok)
	}

	for _, p := range punctuators {
		if !strings.HasPrefix(rest, p) {
			continue
		}
		// "?." followed by a digit is a conditional, as in a?.5:1
		if p == "?." && len(rest) > 2 && isDigit(rest[2]) {
			continue
		}
		lx.advance(len(p))
		tok.kind = tokenPunct
		tok.raw = p
		return tok, nil
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return token{}, lx.errorf("unexpected character %q", r)
}

func (lx *lexer) number(tok token) (token, error) {
	rest := lx.src[lx.pos:]
	end := 0
	if len(rest) > 1 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X') {
		end = 2
		for end < len(rest) && isHexDigit(rest[end]) {
			end++
		}
		value, err := strconv.ParseUint(rest[2:end], 16, 64)
		if err != nil {
			return token{}, lx.errorf("invalid hex literal %q", rest[:end])
		}
		lx.advance(end)
		tok.kind = tokenNumber
		tok.raw = rest[:end]
		tok.num = float64(value)
		return tok, nil
	}
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	if end < len(rest) && rest[end] == '.' {
		end++
		for end < len(rest) && isDigit(rest[end]) {
			end++
		}
	}
	if end < len(rest) && (rest[end] == 'e' || rest[end] == 'E') {
		mark := end
		end++
		if end < len(rest) && (rest[end] == '+' || rest[end] == '-') {
			end++
		}
		if end < len(rest) && isDigit(rest[end]) {
			for end < len(rest) && isDigit(rest[end]) {
				end++
			}
		} else {
			end = mark
		}
	}
	if end < len(rest) && isIdentStart(rest[end:]) {
		return token{}, lx.errorf("identifier starts immediately after numeric literal")
	}
	value, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return token{}, lx.errorf("invalid number %q", rest[:end])
	}
	lx.advance(end)
	tok.kind = tokenNumber
	tok.raw = rest[:end]
	tok.num = value
	return tok, nil
}

// quoted decodes a single or double quoted literal starting at s[0] and
// returns the value and the number of bytes consumed.
func (lx *lexer) quoted(s string, quote byte) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\n':
			return "", 0, lx.errorf("unterminated string literal")
		case c == '\\':
			n, err := lx.escape(s[i:], &b)
			if err != nil {
				return "", 0, err
			}
			i += n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, lx.errorf("unterminated string literal")
}

// escape decodes the escape sequence at the start of s (s[0] == '\\').
func (lx *lexer) escape(s string, b *strings.Builder) (int, error) {
	if len(s) < 2 {
		return 0, lx.errorf("unterminated escape sequence")
	}
	switch s[1] {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// line continuation
	case '\r':
		if len(s) > 2 && s[2] == '\n' {
			return 3, nil
		}
	case 'x':
		if len(s) < 4 {
			return 0, lx.errorf("invalid hex escape")
		}
		v, err := strconv.ParseUint(s[2:4], 16, 8)
		if err != nil {
			return 0, lx.errorf("invalid hex escape")
		}
		b.WriteRune(rune(v))
		return 4, nil
	case 'u':
		if len(s) > 2 && s[2] == '{' {
			end := strings.IndexByte(s, '}')
			if end < 0 {
				return 0, lx.errorf("invalid unicode escape")
			}
			v, err := strconv.ParseUint(s[3:end], 16, 32)
			if err != nil {
				return 0, lx.errorf("invalid unicode escape")
			}
			b.WriteRune(rune(v))
			return end + 1, nil
		}
		if len(s) < 6 {
			return 0, lx.errorf("invalid unicode escape")
		}
		v, err := strconv.ParseUint(s[2:6], 16, 16)
		if err != nil {
			return 0, lx.errorf("invalid unicode escape")
		}
		b.WriteRune(rune(v))
		return 6, nil
	default:
		r, size := utf8.DecodeRuneInString(s[1:])
		b.WriteRune(r)
		return 1 + size, nil
	}
	return 2, nil
}

// template scans a backtick literal. Substitutions are kept as source text
// and parsed later by the parser.
func (lx *lexer) template(tok token) (token, error) {
	s := lx.src[lx.pos:]
	var (
		parts []templatePart
		b     strings.Builder
	)
	line := lx.line
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '`':
			parts = append(parts, templatePart{text: b.String()})
			lx.advance(i + 1)
			tok.kind = tokenTemplate
			tok.parts = parts
			return tok, nil
		case c == '\\':
			n, err := lx.escape(s[i:], &b)
			if err != nil {
				return token{}, err
			}
			i += n
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			end, err := matchingBrace(s, i+2)
			if err != nil {
				return token{}, lx.errorf("unterminated template substitution")
			}
			parts = append(parts, templatePart{text: b.String()})
			b.Reset()
			parts = append(parts, templatePart{source: s[i+2 : end], isExpr: true, line: line})
			line += strings.Count(s[i:end], "\n")
			i = end + 1
		default:
			if c == '\n' {
				line++
			}
			b.WriteByte(c)
			i++
		}
	}
	return token{}, lx.errorf("unterminated template literal")
}

// matchingBrace returns the index of the '}' closing a substitution that
// starts at s[start].
func matchingBrace(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		case '"', '\'', '`':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		}
	}
	return 0, fmt.Errorf("unbalanced braces")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func identEnd(s string) int {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			i += size
			continue
		}
		break
	}
	return i
}

// IsIdentifier reports whether name is a valid identifier that is not a
// reserved word.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name) || identEnd(name) != len(name) {
		return false
	}
	_, reserved := keywords[name]
	return !reserved
}
