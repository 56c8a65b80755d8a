package expr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax reports a malformed expression or program.
	ErrSyntax = errors.New("syntax error")
	// ErrReference reports a read of an undeclared identifier or an invalid
	// assignment target.
	ErrReference = errors.New("reference error")
	// ErrType reports an operation applied to a value of the wrong kind,
	// such as calling a non-function or reading a property of undefined.
	ErrType = errors.New("type error")
	// ErrRange reports exceeded limits, such as the maximum call depth.
	ErrRange = errors.New("range error")
)

// EvaluationError is returned for every failure of the evaluator.
type EvaluationError struct {
	Expression string
	Line       int
	Column     int
	Err        error
}

func (e *EvaluationError) Error() string {
	var b strings.Builder
	b.WriteString("expr: ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("evaluation failed")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	if src := strings.TrimSpace(e.Expression); src != "" && !strings.Contains(src, "\n") && len(src) <= 120 {
		fmt.Fprintf(&b, " in %q", src)
	}
	return b.String()
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// thrown carries a runtime error through panics raised deep in the
// interpreter up to the recovery point in run.
type thrown struct {
	err  error
	line int
	col  int
}

func throwf(kind error, pos position, format string, args ...any) {
	panic(thrown{
		err:  fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
		line: pos.line,
		col:  pos.col,
	})
}

func throwErr(err error, pos position) {
	panic(thrown{err: err, line: pos.line, col: pos.col})
}
