package expr

import (
	"errors"
	"fmt"
)

type parser struct {
	src    string
	tokens []token
	pos    int
	// depth of nested function bodies, used to validate return
	funcDepth int
	// allowReturn permits return at the top level of a program
	allowReturn bool
}

func newParser(src string) (*parser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, tokens: tokens}, nil
}

// parseSource parses src as a list of statements.
func parseSource(src string, allowReturn bool) (nodes []node, err error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	p.allowReturn = allowReturn
	defer p.recover(&err)
	for !p.is(tokenEOF, "") {
		nodes = append(nodes, p.statement())
	}
	return nodes, nil
}

// parseExpressionSource parses src as a single expression.
func parseExpressionSource(src string) (n node, err error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	defer p.recover(&err)
	n = p.expression()
	p.eat(tokenPunct, ";")
	if !p.is(tokenEOF, "") {
		p.fail("unexpected %s", p.describe(p.peek()))
	}
	return n, nil
}

type parseFailure struct {
	err error
}

func (p *parser) recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if pf, ok := r.(parseFailure); ok {
		*errp = pf.err
		return
	}
	panic(r)
}

func (p *parser) fail(format string, args ...any) {
	tok := p.peek()
	panic(parseFailure{err: &EvaluationError{
		Expression: p.src,
		Line:       tok.line,
		Column:     tok.col,
		Err:        fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...)),
	}})
}

func (p *parser) describe(tok token) string {
	switch tok.kind {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return "string"
	case tokenTemplate:
		return "template literal"
	case tokenNumber:
		return "number " + tok.raw
	default:
		return fmt.Sprintf("token %q", tok.raw)
	}
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) is(kind tokenKind, raw string) bool {
	tok := p.peek()
	return tok.kind == kind && (raw == "" || tok.raw == raw)
}

func (p *parser) isPunct(raw string) bool { return p.is(tokenPunct, raw) }

func (p *parser) isKeyword(raw string) bool { return p.is(tokenKeyword, raw) }

func (p *parser) eat(kind tokenKind, raw string) bool {
	if p.is(kind, raw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(raw string) token {
	if !p.isPunct(raw) {
		p.fail("expected %q but found %s", raw, p.describe(p.peek()))
	}
	return p.advance()
}

func (p *parser) identifier() string {
	tok := p.peek()
	if tok.kind != tokenIdent {
		p.fail("expected identifier but found %s", p.describe(tok))
	}
	p.advance()
	return tok.raw
}

func posOf(tok token) position { return position{line: tok.line, col: tok.col} }

// consumeSemicolon applies automatic semicolon insertion.
func (p *parser) consumeSemicolon() {
	if p.eat(tokenPunct, ";") {
		return
	}
	tok := p.peek()
	if tok.kind == tokenEOF || tok.newline || (tok.kind == tokenPunct && tok.raw == "}") {
		return
	}
	p.fail("unexpected %s", p.describe(tok))
}

// statements

func (p *parser) statement() node {
	tok := p.peek()
	pos := posOf(tok)

	if tok.kind == tokenPunct {
		switch tok.raw {
		case "{":
			return p.block()
		case ";":
			p.advance()
			return &emptyStmt{position: pos}
		}
	}

	if tok.kind == tokenKeyword {
		switch tok.raw {
		case "var", "let", "const":
			decl := p.varDeclaration()
			p.consumeSemicolon()
			return decl
		case "if":
			return p.ifStatement()
		case "for":
			return p.forStatement()
		case "while":
			p.advance()
			p.expect("(")
			test := p.expression()
			p.expect(")")
			return &whileStmt{position: pos, test: test, body: p.statement()}
		case "do":
			p.advance()
			body := p.statement()
			if !p.eat(tokenKeyword, "while") {
				p.fail("expected while after do body")
			}
			p.expect("(")
			test := p.expression()
			p.expect(")")
			p.eat(tokenPunct, ";")
			return &whileStmt{position: pos, test: test, body: body, doWhile: true}
		case "break":
			p.advance()
			p.consumeSemicolon()
			return &breakStmt{position: pos}
		case "continue":
			p.advance()
			p.consumeSemicolon()
			return &continueStmt{position: pos}
		case "return":
			if p.funcDepth == 0 && !p.allowReturn {
				p.fail("illegal return statement")
			}
			p.advance()
			var value node
			next := p.peek()
			if !next.newline && next.kind != tokenEOF && !(next.kind == tokenPunct && (next.raw == ";" || next.raw == "}")) {
				value = p.expression()
			}
			p.consumeSemicolon()
			return &returnStmt{position: pos, value: value}
		case "function":
			if p.peekAt(1).kind == tokenIdent {
				fn := p.function()
				return &funcDecl{position: pos, fn: fn}
			}
		}
	}

	e := p.expression()
	p.consumeSemicolon()
	return &exprStmt{position: pos, expr: e}
}

func (p *parser) block() *blockStmt {
	pos := posOf(p.expect("{"))
	var body []node
	for !p.isPunct("}") {
		if p.is(tokenEOF, "") {
			p.fail("unexpected end of input, missing }")
		}
		body = append(body, p.statement())
	}
	p.advance()
	return &blockStmt{position: pos, body: body}
}

func (p *parser) varDeclaration() *varDecl {
	tok := p.advance()
	decl := &varDecl{position: posOf(tok), kind: tok.raw}
	for {
		name := p.identifier()
		var init node
		if p.eat(tokenPunct, "=") {
			init = p.assignment()
		} else if tok.raw == "const" {
			p.fail("missing initializer in const declaration")
		}
		decl.names = append(decl.names, name)
		decl.inits = append(decl.inits, init)
		if !p.eat(tokenPunct, ",") {
			return decl
		}
	}
}

func (p *parser) isIdentNamed(name string) bool {
	tok := p.peek()
	return tok.kind == tokenIdent && tok.raw == name
}

func (p *parser) ifStatement() node {
	pos := posOf(p.advance())
	p.expect("(")
	test := p.expression()
	p.expect(")")
	stmt := &ifStmt{position: pos, test: test, consequent: p.statement()}
	if p.eat(tokenKeyword, "else") {
		stmt.alternate = p.statement()
	}
	return stmt
}

func (p *parser) forStatement() node {
	pos := posOf(p.advance())
	p.expect("(")

	// for (let x of xs) / for (x in obj)
	if kind, name, ok := p.forInHead(); ok {
		of := p.isIdentNamed("of")
		p.advance()
		object := p.expression()
		p.expect(")")
		return &forInStmt{position: pos, declKind: kind, name: name, of: of, object: object, body: p.statement()}
	}

	stmt := &forStmt{position: pos}
	if !p.isPunct(";") {
		if p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const") {
			stmt.init = p.varDeclaration()
		} else {
			stmt.init = &exprStmt{position: posOf(p.peek()), expr: p.expression()}
		}
	}
	p.expect(";")
	if !p.isPunct(";") {
		stmt.test = p.expression()
	}
	p.expect(";")
	if !p.isPunct(")") {
		stmt.update = p.expression()
	}
	p.expect(")")
	stmt.body = p.statement()
	return stmt
}

// forInHead detects "[decl] name of|in" and consumes the declaration and
// name when found.
func (p *parser) forInHead() (kind, name string, ok bool) {
	offset := 0
	tok := p.peek()
	if tok.kind == tokenKeyword && (tok.raw == "var" || tok.raw == "let" || tok.raw == "const") {
		kind = tok.raw
		offset = 1
	}
	ident := p.peekAt(offset)
	next := p.peekAt(offset + 1)
	if ident.kind != tokenIdent {
		return "", "", false
	}
	if !(next.kind == tokenIdent && next.raw == "of") && !(next.kind == tokenKeyword && next.raw == "in") {
		return "", "", false
	}
	p.pos += offset + 1
	return kind, ident.raw, true
}

// function parses "function [name](params) { body }".
func (p *parser) function() *funcExpr {
	pos := posOf(p.advance())
	fn := &funcExpr{position: pos}
	if p.peek().kind == tokenIdent {
		fn.name = p.advance().raw
	}
	fn.params = p.params()
	fn.body = p.functionBody()
	return fn
}

func (p *parser) params() []string {
	p.expect("(")
	var params []string
	for !p.isPunct(")") {
		params = append(params, p.identifier())
		if !p.eat(tokenPunct, ",") {
			break
		}
	}
	p.expect(")")
	return params
}

func (p *parser) functionBody() []node {
	p.funcDepth++
	defer func() { p.funcDepth-- }()
	return p.block().body
}

// expressions

func (p *parser) expression() node {
	first := p.assignment()
	if !p.isPunct(",") {
		return first
	}
	seq := &sequenceExpr{position: first.at(), exprs: []node{first}}
	for p.eat(tokenPunct, ",") {
		seq.exprs = append(seq.exprs, p.assignment())
	}
	return seq
}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

func (p *parser) assignment() node {
	if fn := p.tryArrow(); fn != nil {
		return fn
	}
	target := p.conditional()
	tok := p.peek()
	if tok.kind == tokenPunct && assignOps[tok.raw] {
		switch target.(type) {
		case *identExpr, *memberExpr:
		default:
			p.fail("invalid assignment target")
		}
		p.advance()
		value := p.assignment()
		return &assignExpr{position: posOf(tok), op: tok.raw, target: target, value: value}
	}
	return target
}

// tryArrow parses an arrow function when one starts at the current token.
func (p *parser) tryArrow() node {
	tok := p.peek()
	pos := posOf(tok)
	if tok.kind == tokenIdent && p.peekAt(1).kind == tokenPunct && p.peekAt(1).raw == "=>" {
		p.pos += 2
		return p.arrowBody(pos, []string{tok.raw})
	}
	if tok.kind != tokenPunct || tok.raw != "(" {
		return nil
	}
	// find the matching paren and check for =>
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.kind == tokenEOF {
			return nil
		}
		if t.kind != tokenPunct {
			continue
		}
		switch t.raw {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		if depth == 0 {
			if i+1 < len(p.tokens) && p.tokens[i+1].kind == tokenPunct && p.tokens[i+1].raw == "=>" {
				params := p.params()
				p.expect("=>")
				return p.arrowBody(pos, params)
			}
			return nil
		}
	}
	return nil
}

func (p *parser) arrowBody(pos position, params []string) node {
	fn := &funcExpr{position: pos, params: params, arrow: true}
	if p.isPunct("{") {
		fn.body = p.functionBody()
		return fn
	}
	fn.exprBody = true
	fn.body = []node{p.assignment()}
	return fn
}

func (p *parser) conditional() node {
	test := p.nullish()
	if !p.isPunct("?") {
		return test
	}
	pos := posOf(p.advance())
	consequent := p.assignment()
	p.expect(":")
	alternate := p.assignment()
	return &conditionalExpr{position: pos, test: test, consequent: consequent, alternate: alternate}
}

func (p *parser) nullish() node {
	left := p.logicalOr()
	for p.isPunct("??") {
		pos := posOf(p.advance())
		left = &logicalExpr{position: pos, op: "??", left: left, right: p.logicalOr()}
	}
	return left
}

func (p *parser) logicalOr() node {
	left := p.logicalAnd()
	for p.isPunct("||") {
		pos := posOf(p.advance())
		left = &logicalExpr{position: pos, op: "||", left: left, right: p.logicalAnd()}
	}
	return left
}

func (p *parser) logicalAnd() node {
	left := p.equality()
	for p.isPunct("&&") {
		pos := posOf(p.advance())
		left = &logicalExpr{position: pos, op: "&&", left: left, right: p.equality()}
	}
	return left
}

func (p *parser) binaryLevel(next func() node, ops ...string) node {
	left := next()
	for {
		tok := p.peek()
		matched := false
		for _, op := range ops {
			if (tok.kind == tokenPunct || tok.kind == tokenKeyword) && tok.raw == op {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		p.advance()
		left = &binaryExpr{position: posOf(tok), op: tok.raw, left: left, right: next()}
	}
}

func (p *parser) equality() node {
	return p.binaryLevel(p.relational, "===", "!==", "==", "!=")
}

func (p *parser) relational() node {
	return p.binaryLevel(p.additive, "<", ">", "<=", ">=", "in")
}

func (p *parser) additive() node {
	return p.binaryLevel(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() node {
	return p.binaryLevel(p.exponent, "*", "/", "%")
}

func (p *parser) exponent() node {
	base := p.unary()
	if p.isPunct("**") {
		pos := posOf(p.advance())
		// right associative
		return &binaryExpr{position: pos, op: "**", left: base, right: p.exponent()}
	}
	return base
}

func (p *parser) unary() node {
	tok := p.peek()
	pos := posOf(tok)
	switch {
	case tok.kind == tokenPunct && (tok.raw == "!" || tok.raw == "-" || tok.raw == "+"):
		p.advance()
		return &unaryExpr{position: pos, op: tok.raw, operand: p.unary()}
	case tok.kind == tokenKeyword && (tok.raw == "typeof" || tok.raw == "void"):
		p.advance()
		return &unaryExpr{position: pos, op: tok.raw, operand: p.unary()}
	case tok.kind == tokenPunct && (tok.raw == "++" || tok.raw == "--"):
		p.advance()
		target := p.unary()
		p.checkUpdateTarget(target)
		return &updateExpr{position: pos, op: tok.raw, prefix: true, target: target}
	}
	return p.postfix()
}

func (p *parser) checkUpdateTarget(target node) {
	switch target.(type) {
	case *identExpr, *memberExpr:
	default:
		p.fail("invalid update target")
	}
}

func (p *parser) postfix() node {
	e := p.callMember()
	tok := p.peek()
	if tok.kind == tokenPunct && (tok.raw == "++" || tok.raw == "--") && !tok.newline {
		p.checkUpdateTarget(e)
		p.advance()
		return &updateExpr{position: posOf(tok), op: tok.raw, target: e}
	}
	return e
}

func (p *parser) callMember() node {
	e := p.primary()
	for {
		tok := p.peek()
		if tok.kind != tokenPunct {
			return e
		}
		pos := posOf(tok)
		switch tok.raw {
		case ".":
			p.advance()
			e = &memberExpr{position: pos, object: e, property: p.propertyName()}
		case "?.":
			p.advance()
			switch {
			case p.isPunct("("):
				e = &callExpr{position: pos, callee: e, args: p.arguments(), optional: true}
			case p.isPunct("["):
				p.advance()
				prop := p.expression()
				p.expect("]")
				e = &memberExpr{position: pos, object: e, property: prop, optional: true}
			default:
				e = &memberExpr{position: pos, object: e, property: p.propertyName(), optional: true}
			}
		case "[":
			p.advance()
			prop := p.expression()
			p.expect("]")
			e = &memberExpr{position: pos, object: e, property: prop}
		case "(":
			e = &callExpr{position: pos, callee: e, args: p.arguments()}
		default:
			return e
		}
	}
}

// propertyName accepts identifiers and reserved words after a dot.
func (p *parser) propertyName() node {
	tok := p.peek()
	if tok.kind != tokenIdent && tok.kind != tokenKeyword {
		p.fail("expected property name but found %s", p.describe(tok))
	}
	p.advance()
	return &literalExpr{position: posOf(tok), value: tok.raw}
}

func (p *parser) arguments() []node {
	p.expect("(")
	var args []node
	for !p.isPunct(")") {
		args = append(args, p.assignment())
		if !p.eat(tokenPunct, ",") {
			break
		}
	}
	p.expect(")")
	return args
}

func (p *parser) primary() node {
	tok := p.peek()
	pos := posOf(tok)
	switch tok.kind {
	case tokenNumber:
		p.advance()
		return &literalExpr{position: pos, value: tok.num}
	case tokenString:
		p.advance()
		return &literalExpr{position: pos, value: tok.raw}
	case tokenTemplate:
		p.advance()
		return p.templateLiteral(tok)
	case tokenIdent:
		p.advance()
		return &identExpr{position: pos, name: tok.raw}
	case tokenKeyword:
		switch tok.raw {
		case "true":
			p.advance()
			return &literalExpr{position: pos, value: true}
		case "false":
			p.advance()
			return &literalExpr{position: pos, value: false}
		case "null":
			p.advance()
			return &literalExpr{position: pos, value: nil}
		case "undefined":
			p.advance()
			return &literalExpr{position: pos, value: Undefined}
		case "function":
			return p.function()
		}
	case tokenPunct:
		switch tok.raw {
		case "(":
			p.advance()
			e := p.expression()
			p.expect(")")
			return e
		case "[":
			return p.arrayLiteral()
		case "{":
			return p.objectLiteral()
		}
	}
	p.fail("unexpected %s", p.describe(tok))
	return nil
}

func (p *parser) arrayLiteral() node {
	pos := posOf(p.expect("["))
	arr := &arrayExpr{position: pos}
	for !p.isPunct("]") {
		arr.elems = append(arr.elems, p.assignment())
		if !p.eat(tokenPunct, ",") {
			break
		}
	}
	p.expect("]")
	return arr
}

func (p *parser) objectLiteral() node {
	pos := posOf(p.expect("{"))
	obj := &objectExpr{position: pos}
props:
	for !p.isPunct("}") {
		tok := p.peek()
		var prop property
		switch tok.kind {
		case tokenIdent, tokenKeyword:
			p.advance()
			prop.key = tok.raw
			if tok.kind == tokenIdent && (p.isPunct(",") || p.isPunct("}")) {
				// shorthand {name}
				prop.value = &identExpr{position: posOf(tok), name: tok.raw}
				obj.props = append(obj.props, prop)
				if !p.eat(tokenPunct, ",") {
					break props
				}
				continue
			}
		case tokenString:
			p.advance()
			prop.key = tok.raw
		case tokenNumber:
			p.advance()
			prop.key = ToString(tok.num)
		case tokenPunct:
			if tok.raw != "[" {
				p.fail("unexpected %s in object literal", p.describe(tok))
			}
			p.advance()
			prop.computed = p.assignment()
			p.expect("]")
		default:
			p.fail("unexpected %s in object literal", p.describe(tok))
		}
		p.expect(":")
		prop.value = p.assignment()
		obj.props = append(obj.props, prop)
		if !p.eat(tokenPunct, ",") {
			break
		}
	}
	p.expect("}")
	return obj
}

func (p *parser) templateLiteral(tok token) node {
	tpl := &templateExpr{position: posOf(tok)}
	for _, part := range tok.parts {
		if !part.isExpr {
			tpl.quasis = append(tpl.quasis, part.text)
			continue
		}
		e, err := parseExpressionSource(part.source)
		if err != nil {
			var ee *EvaluationError
			if errors.As(err, &ee) {
				ee.Expression = p.src
				ee.Line += part.line - 1
			}
			panic(parseFailure{err: err})
		}
		tpl.exprs = append(tpl.exprs, e)
	}
	return tpl
}
