package expr

type position struct {
	line int
	col  int
}

func (p position) at() position { return p }

type node interface {
	at() position
}

// expressions

type literalExpr struct {
	position
	value any
}

type templateExpr struct {
	position
	quasis []string
	exprs  []node
}

type identExpr struct {
	position
	name string
}

type arrayExpr struct {
	position
	elems []node
}

type property struct {
	key      string
	computed node
	value    node
}

type objectExpr struct {
	position
	props []property
}

type memberExpr struct {
	position
	object   node
	property node // literal string for dotted access
	optional bool
}

type callExpr struct {
	position
	callee   node
	args     []node
	optional bool
}

type unaryExpr struct {
	position
	op      string
	operand node
}

type updateExpr struct {
	position
	op     string
	prefix bool
	target node
}

type binaryExpr struct {
	position
	op          string
	left, right node
}

type logicalExpr struct {
	position
	op          string
	left, right node
}

type conditionalExpr struct {
	position
	test, consequent, alternate node
}

type assignExpr struct {
	position
	op     string
	target node
	value  node
}

type sequenceExpr struct {
	position
	exprs []node
}

type funcExpr struct {
	position
	name   string
	params []string
	body   []node
	// expression bodied arrow functions keep their value in body[0]
	exprBody bool
	arrow    bool
}

// statements

type varDecl struct {
	position
	kind  string
	names []string
	inits []node
}

type exprStmt struct {
	position
	expr node
}

type blockStmt struct {
	position
	body []node
}

type ifStmt struct {
	position
	test       node
	consequent node
	alternate  node
}

type forStmt struct {
	position
	init   node
	test   node
	update node
	body   node
}

type forInStmt struct {
	position
	declKind string
	name     string
	of       bool
	object   node
	body     node
}

type whileStmt struct {
	position
	test    node
	body    node
	doWhile bool
}

type breakStmt struct{ position }

type continueStmt struct{ position }

type returnStmt struct {
	position
	value node
}

type funcDecl struct {
	position
	fn *funcExpr
}

type emptyStmt struct{ position }
